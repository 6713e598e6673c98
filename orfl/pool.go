package orfl

import "sync"

//Task is a unit of work executed by a Pool.
type Task interface {
	Execute()
}

//Pool runs tasks on a fixed number of worker goroutines. Close must be
//called after the last AddTask; WaitAll returns once every task finished.
type Pool struct {
	tasks chan Task
	wg    sync.WaitGroup
}

//NewPool starts workersNum workers waiting for tasks.
func NewPool(workersNum int) (pool *Pool) {
	pool = &Pool{tasks: make(chan Task)}
	for i := 0; i < workersNum; i++ {
		pool.wg.Add(1)
		go func() {
			defer pool.wg.Done()
			for task := range pool.tasks {
				task.Execute()
			}
		}()
	}
	return
}

//AddTask hands one task to the workers.
func (pool *Pool) AddTask(task Task) {
	pool.tasks <- task
}

//Close signals that no more tasks will arrive.
func (pool *Pool) Close() {
	close(pool.tasks)
}

//WaitAll blocks until all submitted tasks have been executed.
func (pool *Pool) WaitAll() {
	pool.wg.Wait()
}

//TaskTreeUpdate feeds one labeled example to one tree.
type TaskTreeUpdate struct {
	tree  *OnlineTree
	x     []float64
	label int
}

func (task *TaskTreeUpdate) Execute() {
	task.tree.Update(task.x, task.label)
}

//TaskTreePredict stores one tree's vote at its slot in the result slice.
type TaskTreePredict struct {
	result []int
	ind    int
	tree   *OnlineTree
	x      []float64
}

func (task *TaskTreePredict) Execute() {
	task.result[task.ind] = task.tree.Predict(task.x)
}

//TaskHoldOut runs one held-out evaluation round of a cross-validation and
//stores the predicted class at the round's slot.
type TaskHoldOut struct {
	result      []int
	ind         int
	holdOutFunc func(int) int
}

func (task *TaskHoldOut) Execute() {
	task.result[task.ind] = task.holdOutFunc(task.ind)
}
