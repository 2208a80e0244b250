// Package server exposes a running scene over HTTP.
//
// A [Host] owns one [scene.World]. Its Run loop is the only goroutine that
// touches the world: HTTP handlers submit resize and visibility operations
// to it and block until the resulting tick has been published. Reads never
// wait on the loop, they return the last published [Snapshot].
//
//	host := server.NewHost(world, logger)
//	go host.Run(ctx)
//	http.ListenAndServe(addr, server.NewHandler(host, server.Options{Gatherer: reg}))
package server
