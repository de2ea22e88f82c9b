package circuit

// unionFind tracks which pins and nets are electrically joined.
// Keys are opaque strings built by Net.key and Pin.key.
type unionFind struct {
	parent map[string]string // Maps key to parent key
	rank   map[string]int    // Rank for union-by-rank
}

func newUnionFind() *unionFind {
	return &unionFind{
		parent: make(map[string]string),
		rank:   make(map[string]int),
	}
}

// add registers a key as its own singleton set. Adding twice is a no-op.
func (uf *unionFind) add(key string) {
	if _, ok := uf.parent[key]; ok {
		return
	}
	uf.parent[key] = key
	uf.rank[key] = 0
}

// find returns the representative key for the set containing key, with
// path compression. Unknown keys are added first.
func (uf *unionFind) find(key string) string {
	uf.add(key)

	root := key
	for uf.parent[root] != root {
		root = uf.parent[root]
	}

	current := key
	for current != root {
		next := uf.parent[current]
		uf.parent[current] = root
		current = next
	}

	return root
}

// union merges the sets containing a and b and returns the new root.
func (uf *unionFind) union(a, b string) string {
	rootA := uf.find(a)
	rootB := uf.find(b)
	if rootA == rootB {
		return rootA
	}

	switch {
	case uf.rank[rootA] < uf.rank[rootB]:
		uf.parent[rootA] = rootB
		return rootB
	case uf.rank[rootA] > uf.rank[rootB]:
		uf.parent[rootB] = rootA
		return rootA
	default:
		uf.parent[rootB] = rootA
		uf.rank[rootA]++
		return rootA
	}
}
