package cache

// lruList is a fixed-capacity recency list: an arena of entries plus an
// index-based doubly-linked ordering, most recent at the head. Index -1
// is the nil link.
type lruList struct {
	entries  []lruEntry
	index    map[string]int
	head     int
	tail     int
	free     []int
	capacity int
}

type lruEntry struct {
	key        string
	payload    []byte
	prev, next int
}

func newLRUList(capacity int) *lruList {
	if capacity < 1 {
		capacity = 1
	}
	return &lruList{
		entries:  make([]lruEntry, 0, capacity),
		index:    make(map[string]int, capacity),
		head:     -1,
		tail:     -1,
		capacity: capacity,
	}
}

func (l *lruList) len() int { return len(l.index) }

// get returns the payload and promotes the entry to most recently used.
func (l *lruList) get(key string) ([]byte, bool) {
	i, ok := l.index[key]
	if !ok {
		return nil, false
	}
	l.unlink(i)
	l.pushFront(i)
	return l.entries[i].payload, true
}

// put inserts or replaces an entry. When capacity is exceeded the least
// recently used entry is evicted and its key returned.
func (l *lruList) put(key string, payload []byte) (evicted string, didEvict bool) {
	if i, ok := l.index[key]; ok {
		l.entries[i].payload = payload
		l.unlink(i)
		l.pushFront(i)
		return "", false
	}

	if l.len() >= l.capacity {
		victim := l.tail
		evicted = l.entries[victim].key
		didEvict = true
		l.unlink(victim)
		delete(l.index, evicted)
		l.entries[victim] = lruEntry{}
		l.free = append(l.free, victim)
	}

	var i int
	if n := len(l.free); n > 0 {
		i = l.free[n-1]
		l.free = l.free[:n-1]
		l.entries[i] = lruEntry{key: key, payload: payload}
	} else {
		l.entries = append(l.entries, lruEntry{key: key, payload: payload})
		i = len(l.entries) - 1
	}
	l.index[key] = i
	l.pushFront(i)
	return evicted, didEvict
}

// remove deletes an entry if present.
func (l *lruList) remove(key string) bool {
	i, ok := l.index[key]
	if !ok {
		return false
	}
	l.unlink(i)
	delete(l.index, key)
	l.entries[i] = lruEntry{}
	l.free = append(l.free, i)
	return true
}

func (l *lruList) clear() {
	l.entries = l.entries[:0]
	l.index = make(map[string]int, l.capacity)
	l.head, l.tail = -1, -1
	l.free = l.free[:0]
}

func (l *lruList) pushFront(i int) {
	l.entries[i].prev = -1
	l.entries[i].next = l.head
	if l.head >= 0 {
		l.entries[l.head].prev = i
	}
	l.head = i
	if l.tail < 0 {
		l.tail = i
	}
}

func (l *lruList) unlink(i int) {
	prev, next := l.entries[i].prev, l.entries[i].next
	if prev >= 0 {
		l.entries[prev].next = next
	} else {
		l.head = next
	}
	if next >= 0 {
		l.entries[next].prev = prev
	} else {
		l.tail = prev
	}
	l.entries[i].prev, l.entries[i].next = -1, -1
}
