package help

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/berrydesk/internal/keys"
)

func titles(sections []Section) []string {
	out := make([]string, 0, len(sections))
	for _, s := range sections {
		out = append(out, s.Title)
	}
	return out
}

func TestSectionsFollowActiveTab(t *testing.T) {
	k := keys.DefaultKeyMap()
	m := New(k, 120, 40)

	assert.Equal(t, []string{"Navigation", "Session", "Projects"}, titles(m.Sections()))

	m.SetTab("Invoices")
	sections := m.Sections()
	require.Len(t, sections, 3)
	actions := sections[2].Bindings
	assert.Contains(t, actions, k.MarkPaid)
	assert.NotContains(t, actions, k.Search)

	m.SetTab("Todos")
	actions = m.Sections()[2].Bindings
	assert.Contains(t, actions, k.Complete)
	assert.NotContains(t, actions, k.NextPage)

	m.SetTab("Elsewhere")
	assert.Equal(t, []string{"Navigation", "Session"}, titles(m.Sections()))
}

func TestViewListsTabActions(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 120, 40)
	m.SetTab("Invoices")

	view := m.View()
	assert.Contains(t, view, "Session")
	assert.Contains(t, view, "mark paid")
	assert.NotContains(t, view, "generate invoice")
}
