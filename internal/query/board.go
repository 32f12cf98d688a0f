package query

import (
	"time"

	"taskflow/internal/model"
)

// Column is one kanban lane.
type Column struct {
	Status model.Status `json:"status"`
	Tasks  []model.Task `json:"tasks"`
}

// Board groups the filtered, sorted view into todo, in-progress and completed
// lanes. The bucket still applies, so a "high" board has only high tasks.
func Board(tasks []model.Task, view View, now time.Time) []Column {
	sorted := Sort(Filter(tasks, view, now), view.SortBy, view.Order, now.Location())

	columns := []Column{
		{Status: model.StatusTodo, Tasks: []model.Task{}},
		{Status: model.StatusInProgress, Tasks: []model.Task{}},
		{Status: model.StatusCompleted, Tasks: []model.Task{}},
	}
	index := map[model.Status]int{
		model.StatusTodo:       0,
		model.StatusInProgress: 1,
		model.StatusCompleted:  2,
	}
	for _, task := range sorted {
		i, ok := index[task.Status]
		if !ok {
			continue
		}
		columns[i].Tasks = append(columns[i].Tasks, task)
	}
	return columns
}
