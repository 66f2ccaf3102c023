package tree

import "sort"

type OpeningCount struct {
	ECO   string `json:"eco"`
	Name  string `json:"name"`
	Lines int    `json:"lines"`
}

// Summary counts lines per opening, attributing each leaf to the deepest
// classified node on its line. Unclassified lines are grouped under an empty code.
func (n *Node) Summary() []OpeningCount {
	counts := make(map[string]*OpeningCount)
	var walk func(node *Node, eco, name string)
	walk = func(node *Node, eco, name string) {
		if node.ECO != "" {
			eco, name = node.ECO, node.Opening
		}
		if len(node.Children) == 0 {
			key := eco + "\x00" + name
			c, ok := counts[key]
			if !ok {
				c = &OpeningCount{ECO: eco, Name: name}
				counts[key] = c
			}
			c.Lines++
			return
		}
		for _, child := range node.Children {
			walk(child, eco, name)
		}
	}
	walk(n, "", "")

	out := make([]OpeningCount, 0, len(counts))
	for _, c := range counts {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Lines == out[j].Lines {
			if out[i].ECO == out[j].ECO {
				return out[i].Name < out[j].Name
			}
			return out[i].ECO < out[j].ECO
		}
		return out[i].Lines > out[j].Lines
	})
	return out
}
