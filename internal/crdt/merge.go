package crdt

import (
	"fmt"
	"sort"
)

// FieldKind определяет тип merge-стратегии для поля сущности.
type FieldKind string

const (
	// FieldLWW скалярное поле, разрешаемое по правилу Last-Writer-Wins
	FieldLWW FieldKind = "lww"
	// FieldSet аддитивная коллекция, сливаемая объединением множеств
	FieldSet FieldKind = "set"
	// FieldCounter монотонный счетчик, сливаемый взятием максимума
	FieldCounter FieldKind = "counter"
)

// MergeStrategy имя стратегии, зафиксированное в записи о разрешении конфликта.
type MergeStrategy string

const (
	StrategyLastWriterWins MergeStrategy = "last_writer_wins"
	StrategySetUnion       MergeStrategy = "set_union"
	StrategyCounterMax     MergeStrategy = "counter_max"
)

// Field представляет одно поле сущности вместе с данными,
// необходимыми для детерминированного слияния конкурентных правок.
type Field struct {
	Kind    FieldKind `json:"kind"`
	Scalar  string    `json:"scalar,omitempty"`  // значение LWW поля
	Stamp   int64     `json:"stamp,omitempty"`   // Lamport timestamp последней записи LWW
	Origin  string    `json:"origin,omitempty"`  // узел, выполнивший последнюю запись LWW
	Set     []string  `json:"set,omitempty"`     // элементы аддитивной коллекции
	Counter int64     `json:"counter,omitempty"` // значение монотонного счетчика
}

// IsNewerThan сравнивает две LWW версии поля.
// Сначала сравнивается Lamport timestamp, при равенстве - Origin
// (лексикографически) для детерминизма.
func (f Field) IsNewerThan(other Field) bool {
	if f.Stamp != other.Stamp {
		return f.Stamp > other.Stamp
	}
	return f.Origin > other.Origin
}

// MergeField детерминированно сливает две конкурентные версии одного поля.
// Функция коммутативна и идемпотентна: порядок применения не влияет
// на сошедшийся результат.
func MergeField(a, b Field) (Field, MergeStrategy, error) {
	if a.Kind != b.Kind {
		return Field{}, "", fmt.Errorf("cannot merge field kinds %q and %q", a.Kind, b.Kind)
	}

	switch a.Kind {
	case FieldLWW:
		if b.IsNewerThan(a) {
			return b, StrategyLastWriterWins, nil
		}
		return a, StrategyLastWriterWins, nil

	case FieldSet:
		merged := Field{Kind: FieldSet, Set: unionSorted(a.Set, b.Set)}
		return merged, StrategySetUnion, nil

	case FieldCounter:
		merged := Field{Kind: FieldCounter, Counter: a.Counter}
		if b.Counter > merged.Counter {
			merged.Counter = b.Counter
		}
		return merged, StrategyCounterMax, nil

	default:
		return Field{}, "", fmt.Errorf("unknown field kind %q", a.Kind)
	}
}

// unionSorted возвращает отсортированное объединение двух множеств.
// Сортировка делает результат независимым от порядка слияния.
func unionSorted(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	for _, e := range a {
		seen[e] = struct{}{}
	}
	for _, e := range b {
		seen[e] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for e := range seen {
		out = append(out, e)
	}
	sort.Strings(out)

	return out
}
