package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTodoScore(t *testing.T) {
	tests := []struct {
		name string
		todo Todo
		want int
	}{
		{"high x5", Todo{Priority: TodoPriorityHigh, Importance: 5}, 15},
		{"medium x4", Todo{Priority: TodoPriorityMedium, Importance: 4}, 8},
		{"low default importance", Todo{Priority: TodoPriorityLow}, 3},
		{"unknown priority ranks medium", Todo{Priority: "urgent", Importance: 2}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.todo.Score())
		})
	}
}

func TestDueWithin(t *testing.T) {
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.Local)
	due := func(d int) Todo {
		return Todo{DueDate: NewDate(time.Date(2026, 5, d, 0, 0, 0, 0, time.Local))}
	}

	assert.False(t, due(10).DueWithin(now, UpcomingWindow), "earlier today is already past")
	assert.True(t, due(11).DueWithin(now, UpcomingWindow))
	assert.True(t, due(13).DueWithin(now, UpcomingWindow))
	assert.False(t, due(14).DueWithin(now, UpcomingWindow))
	assert.False(t, Todo{}.DueWithin(now, UpcomingWindow))

	assert.True(t, due(13).DueWithin(time.Date(2026, 5, 10, 0, 0, 0, 0, time.Local), UpcomingWindow), "window end is inclusive")
}

func TestOptionLabels(t *testing.T) {
	assert.Equal(t, "server", ProjectOption{Label: "server", CompanyName: "x"}.DisplayLabel())
	assert.Equal(t, "ベリー", ProjectOption{CompanyName: "ベリー"}.DisplayLabel())
	assert.Equal(t, int64(7), ProjectOption{ID: 7}.Key())
	assert.Equal(t, int64(9), ProjectOption{ID: 7, Value: 9}.Key())

	assert.Equal(t, "INV-0001 ベリー", InvoiceOption{InvoiceNumber: "INV-0001", ClientCompany: "ベリー"}.DisplayLabel())
	assert.Equal(t, "ベリー", InvoiceOption{ClientCompany: "ベリー"}.DisplayLabel())
}
