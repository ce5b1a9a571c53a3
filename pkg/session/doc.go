/*
Package session manages one live traversal session per player.

The Manager serializes access to each player's session with reference counted
local locks and an optional distributed lock, and maps save slots onto a
ports.SaveStore using the keys Save_<n> (single player) or <player>.Save_<n>.
*/
package session
