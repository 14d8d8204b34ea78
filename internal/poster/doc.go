// Package poster is the channel posting scheduler.
//
// For every enabled channel in the store it runs one driver goroutine
// that fetches the channel's content listing, filters out removed and
// already-published items, and republishes the rest at a paced rate.
// Fetch and per-item publish failures get a bounded fast retry; an
// exhausted fetch degrades to one attempt per posting interval, so a
// source outage never turns into a tight loop and never takes other
// channels down with it.
//
// Published-item history is held in memory per channel and purged on a
// wall-clock schedule to bound memory.
package poster
