package syncengine

// EpisodeIndex maps season and episode numbers to target item ids for a
// single show. It is built fresh for every show.
type EpisodeIndex struct {
	entries map[int]map[int]string
	size    int
}

// NewEpisodeIndex wraps a season -> episode -> id map as returned by the target.
func NewEpisodeIndex(entries map[int]map[int]string) EpisodeIndex {
	idx := EpisodeIndex{entries: make(map[int]map[int]string, len(entries))}
	for season, episodes := range entries {
		if len(episodes) == 0 {
			continue
		}
		copied := make(map[int]string, len(episodes))
		for number, id := range episodes {
			if id == "" {
				continue
			}
			copied[number] = id
		}
		if len(copied) == 0 {
			continue
		}
		idx.entries[season] = copied
		idx.size += len(copied)
	}
	return idx
}

// Get returns the target item id for season and episode.
func (x EpisodeIndex) Get(season, episode int) (string, bool) {
	id, ok := x.entries[season][episode]
	return id, ok
}

// Len is the number of episodes in the index.
func (x EpisodeIndex) Len() int {
	return x.size
}
