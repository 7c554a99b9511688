// Package chat implements the messenger demo: a single room that consumes
// the bridge's poll output once per tick and relays every message to all
// participants as "name: text". It doubles as the reference consumer for
// the server package.
package chat
