package dataflow

// Triple is the output record shape of Triangle.
type Triple[X any, Y any, Z any] struct {
	X X
	Y Y
	Z Z
}

// biMap is the bidirectional index behind the triangle join: forward
// keyed by A, backward keyed by B, kept in sync so either side can be
// looked up directly without a scan.
type biMap[A Key, B Key, R Weight[R]] struct {
	forward  map[A]map[B]R
	backward map[B]map[A]R
}

func newBiMap[A Key, B Key, R Weight[R]]() *biMap[A, B, R] {
	return &biMap[A, B, R]{forward: make(map[A]map[B]R), backward: make(map[B]map[A]R)}
}

func (m *biMap[A, B, R]) Add(a A, b B, r R) {
	AddIntoNested(m.forward, a, b, r)
	AddIntoNested(m.backward, b, a, r)
}

func (m *biMap[A, B, R]) ForA(a A) (map[B]R, bool) {
	v, ok := m.forward[a]
	return v, ok
}

func (m *biMap[A, B, R]) ForB(b B) (map[A]R, bool) {
	v, ok := m.backward[b]
	return v, ok
}

// intersectSmaller iterates whichever of m1/m2 is smaller, emitting every
// key present in both. Choosing the smaller side to iterate is what keeps
// high-degree vertices from dominating every delta.
func intersectSmaller[K2 Key, R1 any, R2 any](m1 map[K2]R1, m2 map[K2]R2, fn func(K2, R1, R2)) {
	if len(m1) <= len(m2) {
		for k, r1 := range m1 {
			if r2, ok := m2[k]; ok {
				fn(k, r1, r2)
			}
		}
		return
	}
	for k, r2 := range m2 {
		if r1, ok := m1[k]; ok {
			fn(k, r1, r2)
		}
	}
}

// triangleOp is the three-way clique join over relations on (X,Y), (X,Z),
// (Y,Z).
type triangleOp[X Key, Y Key, Z Key, R Weight[R]] struct {
	xy   Op[Pair[X, Y], R]
	xzOp Op[Pair[X, Z], R]
	yzOp Op[Pair[Y, Z], R]

	mxy *biMap[X, Y, R]
	mxz *biMap[X, Z, R]
	myz *biMap[Y, Z, R]

	combine func(R, R, R) R
}

// Flow implements Op.
func (op *triangleOp[X, Y, Z, R]) Flow(t Timestamp, send func(Triple[X, Y, Z], R)) {
	op.xy.Flow(t, func(rec Pair[X, Y], rxy R) {
		x, y := rec.A, rec.B
		if mxzForX, ok1 := op.mxz.ForA(x); ok1 {
			if myzForY, ok2 := op.myz.ForA(y); ok2 {
				intersectSmaller(mxzForX, myzForY, func(z Z, rxz, ryz R) {
					send(Triple[X, Y, Z]{x, y, z}, op.combine(rxy, rxz, ryz))
				})
			}
		}
		op.mxy.Add(x, y, rxy)
	})
	op.xzOp.Flow(t, func(rec Pair[X, Z], rxz R) {
		x, z := rec.A, rec.B
		if mxyForX, ok1 := op.mxy.ForA(x); ok1 {
			if myzForZ, ok2 := op.myz.ForB(z); ok2 {
				intersectSmaller(mxyForX, myzForZ, func(y Y, rxy, ryz R) {
					send(Triple[X, Y, Z]{x, y, z}, op.combine(rxy, rxz, ryz))
				})
			}
		}
		op.mxz.Add(x, z, rxz)
	})
	op.yzOp.Flow(t, func(rec Pair[Y, Z], ryz R) {
		y, z := rec.A, rec.B
		if mxyForY, ok1 := op.mxy.ForB(y); ok1 {
			if mxzForZ, ok2 := op.mxz.ForB(z); ok2 {
				intersectSmaller(mxyForY, mxzForZ, func(x X, rxy, rxz R) {
					send(Triple[X, Y, Z]{x, y, z}, op.combine(rxy, rxz, ryz))
				})
			}
		}
		op.myz.Add(y, z, ryz)
	})
}

// Triangle computes the three-way clique join of xy, xz, yz, emitting one
// (X,Y,Z) triple per matching combination with weight combine(rxy,rxz,ryz).
func Triangle[X Key, Y Key, Z Key, R Weight[R]](
	cc *CreationContext,
	xy Relation[Pair[X, Y], R],
	xz Relation[Pair[X, Z], R],
	yz Relation[Pair[Y, Z], R],
	combine func(R, R, R) R,
) Relation[Triple[X, Y, Z], R] {
	op := &triangleOp[X, Y, Z, R]{
		xy: xy.op, xzOp: xz.op, yzOp: yz.op,
		mxy: newBiMap[X, Y, R](), mxz: newBiMap[X, Z, R](), myz: newBiMap[Y, Z, R](),
		combine: combine,
	}
	return NewRelation[Triple[X, Y, Z], R](cc, "", "triangle_join", []*NodeInfo{xy.node, xz.node, yz.node}, false, op)
}
