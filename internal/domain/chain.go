package domain

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// ErrChainBroken is returned when a chained picking reference cannot be resolved
var ErrChainBroken = errors.New("chained picking reference not found")

// ChainLoader resolves a picking by ID during chain traversal. A nil
// picking with a nil error means the picking does not exist.
type ChainLoader func(ctx context.Context, pickingID string) (*Picking, error)

// CollectChain walks the previous and next references breadth first
// from the given picking and returns every reachable member exactly
// once, starting with the picking itself. The visited set bounds the
// walk so reference loops cannot make it run forever. A reference that
// does not resolve fails the walk with ErrChainBroken.
func CollectChain(ctx context.Context, start *Picking, load ChainLoader) ([]*Picking, error) {
	visited := map[string]bool{start.PickingID: true}
	chain := []*Picking{start}
	queue := append([]string{}, start.PrevPickingIDs...)
	queue = append(queue, start.NextPickingIDs...)

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited[id] {
			continue
		}
		visited[id] = true

		picking, err := load(ctx, id)
		if err != nil {
			return nil, err
		}
		if picking == nil {
			return nil, fmt.Errorf("%w: %s", ErrChainBroken, id)
		}

		chain = append(chain, picking)
		queue = append(queue, picking.PrevPickingIDs...)
		queue = append(queue, picking.NextPickingIDs...)
	}

	return chain, nil
}

// OrderUpstreamFirst sorts a chain so every picking comes after all of
// its predecessors. Ties are broken by picking ID so the order is
// deterministic.
func OrderUpstreamFirst(chain []*Picking) []*Picking {
	byID := make(map[string]*Picking, len(chain))
	for _, p := range chain {
		byID[p.PickingID] = p
	}

	succs := make(map[string]map[string]bool, len(chain))
	indegree := make(map[string]int, len(chain))
	for _, p := range chain {
		succs[p.PickingID] = map[string]bool{}
		indegree[p.PickingID] = 0
	}

	addEdge := func(fromID, toID string) {
		if fromID == toID {
			return
		}
		if _, ok := byID[fromID]; !ok {
			return
		}
		if _, ok := byID[toID]; !ok {
			return
		}
		if succs[fromID][toID] {
			return
		}
		succs[fromID][toID] = true
		indegree[toID]++
	}
	for _, p := range chain {
		for _, nextID := range p.NextPickingIDs {
			addEdge(p.PickingID, nextID)
		}
		for _, prevID := range p.PrevPickingIDs {
			addEdge(prevID, p.PickingID)
		}
	}

	ready := []string{}
	for id, degree := range indegree {
		if degree == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	placed := make(map[string]bool, len(chain))
	ordered := make([]*Picking, 0, len(chain))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		placed[id] = true
		ordered = append(ordered, byID[id])

		for toID := range succs[id] {
			indegree[toID]--
			if indegree[toID] == 0 {
				ready = append(ready, toID)
			}
		}
		sort.Strings(ready)
	}

	if len(ordered) < len(chain) {
		// Chained pickings never form a cycle in healthy data; if
		// corrupt references do, the remainder is appended in ID order
		// so the caller still sees every member.
		rest := []string{}
		for _, p := range chain {
			if !placed[p.PickingID] {
				rest = append(rest, p.PickingID)
			}
		}
		sort.Strings(rest)
		for _, id := range rest {
			ordered = append(ordered, byID[id])
		}
	}

	return ordered
}

// PropagationResult summarizes a serial propagation pass over a chain
type PropagationResult struct {
	Applied int
	Missed  int
}

// PropagateSerials copies captured lots and serials from each move onto
// its chained destination moves. The direct destination reference wins;
// when its SKU does not line up, a move in the destination picking with
// the same SKU and quantity and no serial yet is used instead. A
// destination that cannot take the serial is skipped and counted as a
// miss rather than failing the pass.
func PropagateSerials(ordered []*Picking) PropagationResult {
	index := indexMoves(ordered)
	applied := make(map[string]int)
	var result PropagationResult

	for _, p := range ordered {
		for i := range p.Moves {
			src := &p.Moves[i]
			if src.LotSerial == "" || src.Tracking == TrackingNone {
				continue
			}
			for _, destID := range src.DestMoveIDs {
				ref, ok := index[destID]
				if !ok {
					result.Missed++
					continue
				}
				dest := ref.move
				if dest.State.IsCancelled() {
					continue
				}
				if dest.State.IsDone() {
					if dest.LotSerial != src.LotSerial {
						result.Missed++
					}
					continue
				}
				if dest.SKU == src.SKU {
					if dest.LotSerial != src.LotSerial {
						dest.LotSerial = src.LotSerial
						applied[ref.picking.PickingID]++
						result.Applied++
					}
					continue
				}
				if alt := matchingUnassignedMove(ref.picking, src); alt != nil {
					alt.LotSerial = src.LotSerial
					applied[ref.picking.PickingID]++
					result.Applied++
				} else {
					result.Missed++
				}
			}
		}
	}

	if len(applied) > 0 {
		now := time.Now()
		for _, p := range ordered {
			count, ok := applied[p.PickingID]
			if !ok {
				continue
			}
			p.UpdatedAt = now
			p.AddDomainEvent(&TransferSerialsPropagatedEvent{
				PickingID:    p.PickingID,
				MoveCount:    count,
				PropagatedAt: now,
			})
		}
	}

	return result
}

// CascadeCancellations cancels moves flagged to propagate cancellation
// once every one of their origin moves is cancelled. The pass repeats
// until no further move qualifies so cancellations ripple down chains
// of any depth. Returns the number of moves cancelled.
func CascadeCancellations(chain []*Picking) int {
	index := indexMoves(chain)
	touched := make(map[string]int)
	total := 0

	for {
		progressed := false
		for _, p := range chain {
			for i := range p.Moves {
				move := &p.Moves[i]
				if move.State.IsCancelled() || move.State.IsDone() {
					continue
				}
				if !move.PropagateCancel || !move.IsChained() {
					continue
				}
				if !allOriginsCancelled(move.OrigMoveIDs, index) {
					continue
				}
				move.State = StateCancelled
				move.ReservedQty = decimal.Zero
				touched[p.PickingID]++
				total++
				progressed = true
			}
		}
		if !progressed {
			break
		}
	}

	if total > 0 {
		now := time.Now()
		for _, p := range chain {
			count, ok := touched[p.PickingID]
			if !ok {
				continue
			}
			wasCancelled := p.State.IsCancelled()
			p.RefreshStateFromMoves()
			p.UpdatedAt = now
			if !wasCancelled && p.State.IsCancelled() {
				p.AddDomainEvent(&TransferCancelledEvent{
					PickingID:   p.PickingID,
					WarehouseID: p.WarehouseID,
					Reason:      "origin moves cancelled",
					MoveCount:   count,
					CancelledAt: now,
				})
			}
		}
	}

	return total
}

// moveRef points at a move together with the picking that owns it
type moveRef struct {
	picking *Picking
	move    *Move
}

// indexMoves builds a move ID index across every picking in the chain
func indexMoves(chain []*Picking) map[string]moveRef {
	index := make(map[string]moveRef)
	for _, p := range chain {
		for i := range p.Moves {
			index[p.Moves[i].MoveID] = moveRef{picking: p, move: &p.Moves[i]}
		}
	}
	return index
}

// matchingUnassignedMove finds a move in the picking with the same SKU
// and quantity as src that has no lot or serial captured yet
func matchingUnassignedMove(p *Picking, src *Move) *Move {
	for i := range p.Moves {
		move := &p.Moves[i]
		if move.State.IsDone() || move.State.IsCancelled() {
			continue
		}
		if move.LotSerial != "" || move.SKU != src.SKU {
			continue
		}
		if !move.Quantity.Equal(src.Quantity) {
			continue
		}
		return move
	}
	return nil
}

// allOriginsCancelled reports whether every origin move resolves inside
// the chain and is cancelled
func allOriginsCancelled(origIDs []string, index map[string]moveRef) bool {
	for _, id := range origIDs {
		ref, ok := index[id]
		if !ok || !ref.move.State.IsCancelled() {
			return false
		}
	}
	return true
}
