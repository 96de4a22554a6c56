package crdt

// Ordering описывает причинно-следственное отношение между двумя version vector.
type Ordering int

const (
	// OrderEqual векторы идентичны
	OrderEqual Ordering = iota
	// OrderBefore левый вектор причинно предшествует правому
	OrderBefore
	// OrderAfter левый вектор причинно следует за правым
	OrderAfter
	// OrderConcurrent векторы конкурентны (ни один не предшествует другому)
	OrderConcurrent
)

// VersionVector представляет version vector (вектор версий) сущности:
// отображение origin-node id -> монотонно растущий счетчик.
// Используется для различения конкурентных и причинно упорядоченных изменений.
type VersionVector map[string]int64

// NewVersionVector создает пустой version vector.
func NewVersionVector() VersionVector {
	return make(VersionVector)
}

// Clone создает глубокую копию вектора.
func (v VersionVector) Clone() VersionVector {
	out := make(VersionVector, len(v))
	for origin, seq := range v {
		out[origin] = seq
	}
	return out
}

// Get возвращает счетчик для origin (0, если origin не известен).
func (v VersionVector) Get(origin string) int64 {
	return v[origin]
}

// Observe фиксирует событие от origin: счетчик увеличивается на единицу.
// Возвращает новое значение счетчика.
func (v VersionVector) Observe(origin string) int64 {
	v[origin]++
	return v[origin]
}

// Merge возвращает поточечный максимум двух векторов.
// Операция коммутативна, ассоциативна и идемпотентна.
func (v VersionVector) Merge(other VersionVector) VersionVector {
	out := v.Clone()
	for origin, seq := range other {
		if seq > out[origin] {
			out[origin] = seq
		}
	}
	return out
}

// Compare определяет причинное отношение между v и other.
func (v VersionVector) Compare(other VersionVector) Ordering {
	vAhead := false    // v знает события, которых нет в other
	otherAhead := false

	for origin, seq := range v {
		if seq > other[origin] {
			vAhead = true
		}
	}
	for origin, seq := range other {
		if seq > v[origin] {
			otherAhead = true
		}
	}

	switch {
	case vAhead && otherAhead:
		return OrderConcurrent
	case vAhead:
		return OrderAfter
	case otherAhead:
		return OrderBefore
	default:
		return OrderEqual
	}
}

// HappensBefore возвращает true, если v причинно предшествует other.
func (v VersionVector) HappensBefore(other VersionVector) bool {
	return v.Compare(other) == OrderBefore
}

// Concurrent возвращает true, если ни один из векторов не предшествует другому.
func (v VersionVector) Concurrent(other VersionVector) bool {
	return v.Compare(other) == OrderConcurrent
}

// Dominates возвращает true, если v отражает все события other (After или Equal).
func (v VersionVector) Dominates(other VersionVector) bool {
	ord := v.Compare(other)
	return ord == OrderAfter || ord == OrderEqual
}
