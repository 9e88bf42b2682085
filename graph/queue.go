package graph

// ExecQueue produces the execution order for this node and everything
// reachable through its exec-output edges.
//
// The traversal is depth-first, front-to-back over the node's exec outputs:
// the queue starts with the node itself, followed by the full queue of the
// node attached to each exec output's first (and only, exec fan-out is
// capped at 1) connection. On a linear chain A->B->C the result is [A B C].
//
// A visited set guards the walk: a graph wired into a cycle yields each node
// once and the traversal terminates instead of recursing forever. The view
// layer may create cycles transiently while rewiring, so termination is
// enforced here rather than at edge creation.
func (n *Node) ExecQueue() []*Node {
	queue := make([]*Node, 0, 8)
	visited := make(map[string]bool)

	var walk func(cur *Node)
	walk = func(cur *Node) {
		if visited[cur.id] {
			return
		}
		visited[cur.id] = true
		queue = append(queue, cur)
		for _, out := range cur.ExecOutputs() {
			conns := out.Connections()
			if len(conns) == 0 {
				continue
			}
			if next := conns[0].Node(); next != nil {
				walk(next)
			}
		}
	}
	walk(n)
	return queue
}
