// Package broadcast is a typed, in-process publish/subscribe bus.
//
// The auth manager publishes lifecycle notifications ("signed-in",
// "registration-complete") through a Broadcaster so that consumers never
// become compile-time dependencies of the publisher.
//
//	bus := broadcast.NewMemoryBroadcaster[string](10)
//	defer bus.Close()
//
//	sub := bus.Subscribe(ctx)
//	_ = bus.Broadcast(ctx, broadcast.Message[string]{Data: "hello"})
//
//	for msg := range sub.Receive(ctx) {
//		fmt.Println(msg.Data)
//	}
//
// Delivery never blocks the publisher. A subscriber whose buffer is full is
// dropped and its channel closed, so consumers should drain promptly and
// resubscribe if they care about every message.
package broadcast
