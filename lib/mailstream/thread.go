package mailstream

import (
	"sort"
	"strconv"
	"strings"
)

const (
	ThreadOrderedSubject = "ORDEREDSUBJECT"
	ThreadReferences     = "REFERENCES"
)

// ThreadNode is one message of thread tree. Num is 0 for placeholder
// nodes grouping siblings whose parent is not present.
type ThreadNode struct {
	Num      uint64
	Children []*ThreadNode
}

// SortFunc is driver sort used to order thread candidates.
type SortFunc func(s *Stream, charset string, spg *SearchProgram, pgm []SortProgram, opts SortOptions) ([]uint64, error)

// ThreadMsgs threads messages matching spg using sorter for ordering.
func ThreadMsgs(s *Stream, algorithm, charset string, spg *SearchProgram, opts SortOptions, sorter SortFunc) ([]*ThreadNode, error) {
	switch strings.ToUpper(algorithm) {
	case ThreadOrderedSubject:
		msgs, err := sorter(s, charset, spg, []SortProgram{{Key: SortSubject}, {Key: SortDate}}, SortOptions{})
		if err != nil {
			return nil, err
		}
		return threadOrderedSubject(s, msgs, opts.UID), nil
	case ThreadReferences:
		msgs, err := sorter(s, charset, spg, []SortProgram{{Key: SortDate}}, SortOptions{})
		if err != nil {
			return nil, err
		}
		return threadReferences(s, msgs, opts.UID), nil
	}
	return nil, &UsageError{Op: "thread", Name: algorithm, Reason: "unknown threading algorithm"}
}

func threadNum(s *Stream, msgno uint64, uid bool) uint64 {
	if uid {
		return s.UID(msgno)
	}
	return msgno
}

func sortKeys(s *Stream, msgno uint64) SortCache {
	e := s.Elt(msgno)
	return e.SortCache().WithDefaults(msgno, e.UID)
}

func threadOrderedSubject(s *Stream, msgs []uint64, uid bool) []*ThreadNode {
	type root struct {
		n    *ThreadNode
		date int64
	}
	var roots []root
	var cur *ThreadNode
	var curSubj string
	for _, m := range msgs {
		k := sortKeys(s, m)
		n := &ThreadNode{Num: threadNum(s, m, uid)}
		if cur != nil && k.Subject == curSubj {
			cur.Children = append(cur.Children, n)
			continue
		}
		cur, curSubj = n, k.Subject
		roots = append(roots, root{n: n, date: k.Date})
	}
	sort.SliceStable(roots, func(i, j int) bool { return roots[i].date < roots[j].date })
	r := make([]*ThreadNode, len(roots))
	for i := range roots {
		r[i] = roots[i].n
	}
	return r
}

type container struct {
	msgno    uint64
	date     int64
	parent   *container
	children []*container
}

func (c *container) isAncestorOf(o *container) bool {
	for p := o; p != nil; p = p.parent {
		if p == c {
			return true
		}
	}
	return false
}

func (c *container) unlink() {
	if c.parent == nil {
		return
	}
	ch := c.parent.children
	for i := range ch {
		if ch[i] == c {
			c.parent.children = append(ch[:i], ch[i+1:]...)
			break
		}
	}
	c.parent = nil
}

func (c *container) link(child *container) {
	child.unlink()
	child.parent = c
	c.children = append(c.children, child)
}

func threadReferences(s *Stream, msgs []uint64, uid bool) []*ThreadNode {
	ids := make(map[string]*container)
	get := func(id string) *container {
		c := ids[id]
		if c == nil {
			c = &container{}
			ids[id] = c
		}
		return c
	}
	var order []*container
	for _, m := range msgs {
		k := sortKeys(s, m)
		id := k.MessageID
		if id == "" || (ids[id] != nil && ids[id].msgno != 0) {
			// missing or duplicate id, make it unique
			id = "<" + strconv.FormatUint(m, 10) + ".nkmail.dup>"
		}
		c := get(id)
		c.msgno, c.date = m, k.Date
		order = append(order, c)

		var prev *container
		for _, ref := range k.References {
			rc := get(ref)
			if prev != nil && rc.parent == nil && rc != prev && !rc.isAncestorOf(prev) {
				prev.link(rc)
			}
			prev = rc
		}
		if prev != nil && prev != c && !c.isAncestorOf(prev) {
			prev.link(c)
		} else {
			c.unlink()
		}
	}

	var roots []*container
	seen := make(map[*container]bool)
	for _, c := range ids {
		for c.parent != nil {
			c = c.parent
		}
		if !seen[c] {
			seen[c] = true
			roots = append(roots, c)
		}
	}

	var build func(c *container) []*ThreadNode
	build = func(c *container) []*ThreadNode {
		var kids []*ThreadNode
		for _, ch := range c.children {
			kids = append(kids, build(ch)...)
		}
		if c.msgno == 0 {
			// placeholder, promote children
			return kids
		}
		return []*ThreadNode{{Num: threadNum(s, c.msgno, uid), Children: kids}}
	}

	var out []*ThreadNode
	var dates []int64
	for _, r := range roots {
		nodes := build(r)
		switch len(nodes) {
		case 0:
			continue
		case 1:
			out = append(out, nodes[0])
		default:
			out = append(out, &ThreadNode{Children: nodes})
		}
		dates = append(dates, earliest(r))
	}
	idx := make([]int, len(out))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		da, db := dates[idx[a]], dates[idx[b]]
		if da != db {
			return da < db
		}
		return firstNum(out[idx[a]]) < firstNum(out[idx[b]])
	})
	r := make([]*ThreadNode, len(out))
	for i, j := range idx {
		r[i] = out[j]
	}
	sortChildren(s, r, uid)
	return r
}

func earliest(c *container) int64 {
	if c.msgno != 0 {
		return c.date
	}
	var d int64
	first := true
	for _, ch := range c.children {
		if x := earliest(ch); first || x < d {
			d, first = x, false
		}
	}
	return d
}

func firstNum(n *ThreadNode) uint64 {
	for n.Num == 0 && len(n.Children) != 0 {
		n = n.Children[0]
	}
	return n.Num
}

func sortChildren(s *Stream, l []*ThreadNode, uid bool) {
	for _, n := range l {
		ch := n.Children
		sort.SliceStable(ch, func(i, j int) bool {
			return nodeDate(s, ch[i], uid) < nodeDate(s, ch[j], uid)
		})
		sortChildren(s, ch, uid)
	}
}

func nodeDate(s *Stream, n *ThreadNode, uid bool) int64 {
	num := firstNum(n)
	msgno := num
	if uid {
		msgno = s.MsgNo(num)
	}
	return sortKeys(s, msgno).Date
}
