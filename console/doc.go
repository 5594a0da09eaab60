// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package console serves the administrative web console.

Every page is rendered on the server from the embedded templates. Reads go
through a querycache.Cache and writes through Cache.Mutate, so a change to
one record refreshes exactly the lists that show it. Modal dialogs are
addressed by query string (?modal=add, ?modal=edit&id=..., ?modal=delete&id=...)
and submitted as ordinary form posts; a failed submission renders the same
page again with the dialog still open.

Pages that cannot load their data within the load budget render a loading
state and reload themselves. The read keeps running and fills the cache for
the next visit.
*/
package console
