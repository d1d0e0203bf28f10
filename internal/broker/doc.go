// Package broker distributes conversation events to subscribers.
//
// Design decisions:
//   - Context-first: subscriptions end when their context does
//   - Topic-based: each conversation publishes on its own topic, see events.Topic
//   - Hook integration: subscribers receive events through events.Hook
//   - Slow subscribers are dropped instead of blocking publishers
//
// Two implementations share the interfaces: Local keeps everything in process, NATS
// publishes JSON encoded events so other processes (an HTTP front end watching a worker, for
// instance) can follow along.
//
//	b := broker.Local()
//	topic := b.Topic(ctx, events.Topic(conversationID))
//	sub, err := topic.Subscribe(ctx, events.Hooks{Turn: printTurn})
//	if err != nil {
//	    return err
//	}
//	defer sub.Unsubscribe()
package broker
