// Package tick provides a minimal fixed-timestep host loop.
//
// A Runner executes one-time startup hooks, then invokes every registered
// update hook once per tick until its context is cancelled. Consumers that
// poll the WebSocket bridge register their poll callback as an update hook;
// the server's Start goes in a startup hook so bind failures abort the run.
package tick
