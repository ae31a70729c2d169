package registration

import "sort"

// Entry is a record annotated with its duplicate-group membership.
type Entry struct {
	Record
	// Group identifies records sharing a phone number. Ids are assigned in
	// order of first appearance, starting at 0.
	Group int
	// Position is 1 for the first record seen in the group and increases in file order.
	Position    int
	IsDuplicate bool
}

// Group partitions records by phone number. Every record is returned, in input
// order. A blank phone never joins another record's group.
func Group(records []Record) []Entry {
	entries := make([]Entry, len(records))
	groupOf := make(map[string]int, len(records))
	sizes := make([]int, 0, len(records))

	for i, rec := range records {
		var g int
		if id, ok := groupOf[rec.Phone]; ok && rec.Phone != "" {
			g = id
		} else {
			g = len(sizes)
			sizes = append(sizes, 0)
			if rec.Phone != "" {
				groupOf[rec.Phone] = g
			}
		}
		sizes[g]++
		entries[i] = Entry{Record: rec, Group: g, Position: sizes[g]}
	}

	for i := range entries {
		entries[i].IsDuplicate = sizes[entries[i].Group] > 1
	}
	return entries
}

// Ordered returns a copy of entries stably sorted by (Group, Position), which
// keeps duplicates together in order of first appearance.
func Ordered(entries []Entry) []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Group != out[j].Group {
			return out[i].Group < out[j].Group
		}
		return out[i].Position < out[j].Position
	})
	return out
}
