package notify

import (
	"context"
	"testing"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestNotionTransport_OnePagePerRecord(t *testing.T) {
	mc := new(mockNotion)
	mc.On("QueryDatabase", mock.Anything, "db-review", mock.Anything).
		Return(&notionapi.DatabaseQueryResponse{}, nil).Twice()
	mc.On("CreatePage", mock.Anything, mock.AnythingOfType("*notionapi.PageCreateRequest")).
		Return(&notionapi.Page{ID: "p"}, nil).Twice()

	d, err := fixedRenderer().Render(batch())
	require.NoError(t, err)

	require.NoError(t, NewNotionTransport(mc, "db-review").Send(context.Background(), d))
	mc.AssertExpectations(t)
}

func TestNotionTransport_StopsOnError(t *testing.T) {
	mc := new(mockNotion)
	mc.On("QueryDatabase", mock.Anything, "db-review", mock.Anything).
		Return(nil, assert.AnError).Once()

	d, err := fixedRenderer().Render(batch())
	require.NoError(t, err)

	err = NewNotionTransport(mc, "db-review").Send(context.Background(), d)
	require.Error(t, err)
	mc.AssertNumberOfCalls(t, "QueryDatabase", 1)
	mc.AssertNotCalled(t, "CreatePage", mock.Anything, mock.Anything)
}
