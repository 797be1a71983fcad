package rendercache

import "github.com/gogpu/ggui/layout"

// lruNode is a node in a doubly-linked LRU list.
type lruNode struct {
	key  layout.ID
	prev *lruNode
	next *lruNode
}

// lruList orders entries by recency. The head is the most recently used,
// the tail the least. Not thread-safe; Cache holds its mutex.
type lruList struct {
	head *lruNode
	tail *lruNode
	len  int
}

func (l *lruList) pushFront(key layout.ID) *lruNode {
	n := &lruNode{key: key}
	l.linkFront(n)
	return n
}

func (l *lruList) moveToFront(n *lruNode) {
	if n == nil || n == l.head {
		return
	}
	l.unlink(n)
	l.linkFront(n)
}

func (l *lruList) remove(n *lruNode) {
	if n != nil {
		l.unlink(n)
	}
}

// oldest returns the least recently used key.
func (l *lruList) oldest() (layout.ID, bool) {
	if l.tail == nil {
		return layout.NoID, false
	}
	return l.tail.key, true
}

func (l *lruList) clear() {
	l.head, l.tail, l.len = nil, nil, 0
}

func (l *lruList) linkFront(n *lruNode) {
	n.prev = nil
	n.next = l.head
	if l.head != nil {
		l.head.prev = n
	}
	l.head = n
	if l.tail == nil {
		l.tail = n
	}
	l.len++
}

func (l *lruList) unlink(n *lruNode) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		l.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		l.tail = n.prev
	}
	n.prev, n.next = nil, nil
	l.len--
}
