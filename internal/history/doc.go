// Package history records structural mutations made through a graph.Host.
//
// A Journal wraps the host the linker works on. Every successful
// CreateLink, RemoveLink and DeleteNode is stamped with a logical seq and
// filed under the open transaction, so that a multi-step connect can be
// reverted or replayed as one unit:
//
//	j := history.New(h, history.WithSink(st))
//	lk := link.New(graph.NewRegistry(j))
//	err := j.Do(ctx, "connect A to B", func() error {
//		_, err := lk.Connect(a, b, true)
//		return err
//	})
//
// Failed host calls are not recorded. A transaction is committed even when
// its body fails part way, so the partial surgery stays visible and can be
// undone.
package history
