// Package statefeed provides an embeddable receiver for the statefeed
// UDP protocol: periodic entity-state updates decoded off the wire,
// diffed per entity, and dispatched to an injectable handler.
//
// Example usage:
//
//	sf, err := statefeed.New(statefeed.Config{ListenAddr: "0.0.0.0:5005"},
//	    statefeed.WithLogger(logger),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := sf.Start(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
//	defer sf.Stop()
//
// The default handler tracks each entity's last triggering state and
// logs initializations and updates; substitute your own business logic
// with WithHandler.
package statefeed
