package boxdd

import "github.com/jakecoffman/cp"

// QueryFilter restricts queries by category bits, the same scheme shapes use.
type QueryFilter struct {
	Categories uint
	Mask       uint
}

// DefaultQueryFilter matches every shape.
func DefaultQueryFilter() QueryFilter {
	return QueryFilter{Categories: ^uint(0), Mask: ^uint(0)}
}

func (f QueryFilter) cp() cp.ShapeFilter {
	return cp.ShapeFilter{Group: 0, Categories: f.Categories, Mask: f.Mask}
}

// AABB is an axis-aligned bounding box.
type AABB struct {
	Lower Vec2
	Upper Vec2
}

// AABBAround builds a box from a center and half extents.
func AABBAround(center, halfExtents Vec2) AABB {
	return AABB{Lower: center.Sub(halfExtents), Upper: center.Add(halfExtents)}
}

// RayResult is the outcome of a closest-hit ray cast. When Hit is false the
// other fields are zero.
type RayResult struct {
	Shape    ShapeID
	Point    Vec2
	Normal   Vec2
	Fraction float64
	Hit      bool
}

// CastRayClosest casts a ray from origin along translation and returns the
// closest hit. On a destroyed world it reports no hit.
func (w *World) CastRayClosest(origin, translation Vec2, filter QueryFilter) RayResult {
	if w.destroyed {
		return RayResult{}
	}
	end := origin.Add(translation)
	info := w.space.SegmentQueryFirst(origin.CP(), end.CP(), 0, filter.cp())
	if info.Shape == nil {
		return RayResult{}
	}
	id, ok := w.shapeIDs[info.Shape]
	if !ok {
		return RayResult{}
	}
	return RayResult{
		Shape:    id,
		Point:    fromCP(info.Point),
		Normal:   fromCP(info.Normal),
		Fraction: info.Alpha,
		Hit:      true,
	}
}

// CastRayAll casts a ray and returns every hit along it, in the order the
// broadphase reports them.
func (w *World) CastRayAll(origin, translation Vec2, filter QueryFilter) []RayResult {
	if w.destroyed {
		return nil
	}
	end := origin.Add(translation)
	var out []RayResult
	w.space.SegmentQuery(origin.CP(), end.CP(), 0, filter.cp(),
		func(shape *cp.Shape, point, normal cp.Vector, alpha float64, _ interface{}) {
			id, ok := w.shapeIDs[shape]
			if !ok {
				return
			}
			out = append(out, RayResult{
				Shape:    id,
				Point:    fromCP(point),
				Normal:   fromCP(normal),
				Fraction: alpha,
				Hit:      true,
			})
		}, nil)
	return out
}

// OverlapAABB returns the shapes whose bounding boxes overlap the box.
func (w *World) OverlapAABB(box AABB, filter QueryFilter) []ShapeID {
	if w.destroyed {
		return nil
	}
	bb := cp.BB{L: box.Lower.X, B: box.Lower.Y, R: box.Upper.X, T: box.Upper.Y}
	var out []ShapeID
	w.space.BBQuery(bb, filter.cp(), func(shape *cp.Shape, _ interface{}) {
		if id, ok := w.shapeIDs[shape]; ok {
			out = append(out, id)
		}
	}, nil)
	return out
}

// PointResult is the outcome of a nearest-point query.
type PointResult struct {
	Shape    ShapeID
	Point    Vec2
	Distance float64
}

// PointQueryNearest finds the shape nearest to a point within maxDistance.
func (w *World) PointQueryNearest(point Vec2, maxDistance float64, filter QueryFilter) (PointResult, bool) {
	if w.destroyed {
		return PointResult{}, false
	}
	info := w.space.PointQueryNearest(point.CP(), maxDistance, filter.cp())
	if info == nil || info.Shape == nil {
		return PointResult{}, false
	}
	id, ok := w.shapeIDs[info.Shape]
	if !ok {
		return PointResult{}, false
	}
	return PointResult{
		Shape:    id,
		Point:    fromCP(info.Point),
		Distance: info.Distance,
	}, true
}
