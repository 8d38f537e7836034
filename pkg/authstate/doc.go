// Package authstate holds the client's view of the current session: the
// resolved identity (or its absence), whether a resolution is in flight, and a
// monotonically increasing generation counter.
//
// Every flow that intends to write captures a generation with Begin and hands
// it back to Commit or Settle. Writes carrying an older generation are
// discarded, which keeps a slow login retry from resurrecting an identity
// after an explicit logout (Invalidate bumps the generation).
//
// Reads never block on I/O. Change hooks registered with OnChange run after
// every applied mutation, outside the state lock, in registration order.
// Deliveries are serialized: a hook observes mutations in the order they were
// applied and may read the store, but must not write to it.
package authstate
