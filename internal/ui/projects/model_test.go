package projects

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nhle/berrydesk/internal/model"
)

func TestNextStatusCycles(t *testing.T) {
	assert.Equal(t, model.ProjectStatusProposed, nextStatus(""))
	assert.Equal(t, model.ProjectStatusContracted, nextStatus(model.ProjectStatusProposed))
	assert.Equal(t, model.ProjectStatusCompleted, nextStatus(model.ProjectStatusContracted))
	assert.Equal(t, "", nextStatus(model.ProjectStatusCompleted))
	assert.Equal(t, "", nextStatus("unknown"))
}

func TestNextSortCycles(t *testing.T) {
	f := model.ProjectFilters{SortBy: "created_at", Order: "desc"}
	assert.Equal(t, "newest", sortLabel(f))

	next := nextSort(f)
	assert.Equal(t, "deadline", next.by)
	assert.Equal(t, "asc", next.order)

	f = model.ProjectFilters{SortBy: "company_name", Order: "asc"}
	assert.Equal(t, "created_at", nextSort(f).by)

	f = model.ProjectFilters{SortBy: "amount", Order: "asc"}
	assert.Equal(t, "amount asc", sortLabel(f))
	assert.Equal(t, sortCycle[0], nextSort(f))
}
