package scheduler

import (
	"container/heap"
	"time"

	"github.com/iudanet/meshsync/internal/models"
)

// queueItem элемент очереди с вычисленным эффективным приоритетом.
type queueItem struct {
	task *models.Task
	eff  int
}

// taskQueue приоритетная очередь задач: больший эффективный приоритет
// раньше, при равенстве - порядок поступления.
type taskQueue struct {
	items []*queueItem
}

func newTaskQueue() *taskQueue {
	q := &taskQueue{}
	heap.Init(q)
	return q
}

func (q *taskQueue) Len() int { return len(q.items) }

func (q *taskQueue) Less(i, j int) bool {
	if q.items[i].eff != q.items[j].eff {
		return q.items[i].eff > q.items[j].eff
	}
	return q.items[i].task.Seq < q.items[j].task.Seq
}

func (q *taskQueue) Swap(i, j int) {
	q.items[i], q.items[j] = q.items[j], q.items[i]
}

func (q *taskQueue) Push(x any) {
	q.items = append(q.items, x.(*queueItem))
}

func (q *taskQueue) Pop() any {
	old := q.items
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	q.items = old[:n-1]
	return item
}

// push добавляет задачу с эффективным приоритетом на текущий момент.
func (q *taskQueue) push(task *models.Task, now time.Time, escalateEvery time.Duration) {
	heap.Push(q, &queueItem{
		task: task,
		eff:  effectivePriority(task, now, escalateEvery),
	})
}

// pop снимает задачу с наивысшим эффективным приоритетом.
func (q *taskQueue) pop() *models.Task {
	if q.Len() == 0 {
		return nil
	}
	return heap.Pop(q).(*queueItem).task
}

// refresh пересчитывает эффективные приоритеты с учетом времени ожидания
// и восстанавливает инвариант кучи. Долго ждущая задача постепенно
// поднимается, чтобы backpressure не превращался в голодание.
func (q *taskQueue) refresh(now time.Time, escalateEvery time.Duration) {
	for _, item := range q.items {
		item.eff = effectivePriority(item.task, now, escalateEvery)
	}
	heap.Init(q)
}

// effectivePriority базовый приоритет плюс бонус за каждый полный
// интервал ожидания в очереди.
func effectivePriority(task *models.Task, now time.Time, escalateEvery time.Duration) int {
	if escalateEvery <= 0 {
		return task.Priority
	}
	waited := now.Sub(task.CreatedAt)
	if waited < 0 {
		waited = 0
	}
	return task.Priority + int(waited/escalateEvery)
}
