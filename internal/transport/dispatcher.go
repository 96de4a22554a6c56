package transport

import (
	"context"
	"errors"
	"fmt"

	"github.com/iudanet/meshsync/internal/models"
	"github.com/iudanet/meshsync/internal/scheduler"
	"github.com/iudanet/meshsync/pkg/api"
)

// NodeDispatcher адаптирует транспорт под контракт планировщика.
// Ответ узла с permanent=true превращается в scheduler.ErrPermanent,
// чтобы планировщик не ретраил заведомо безнадежную задачу.
type NodeDispatcher struct {
	client *Client
}

func NewNodeDispatcher(client *Client) *NodeDispatcher {
	return &NodeDispatcher{client: client}
}

func (d *NodeDispatcher) Dispatch(ctx context.Context, node models.Node, task *models.Task) ([]byte, error) {
	resp, err := d.client.Dispatch(ctx, node.Addr, api.DispatchRequest{
		TaskID:  task.ID,
		Payload: task.Payload,
	})
	if err != nil {
		return nil, err
	}

	if resp.Error != "" {
		if resp.Permanent {
			return nil, fmt.Errorf("%w: %s", scheduler.ErrPermanent, resp.Error)
		}
		return nil, errors.New(resp.Error)
	}

	return resp.Result, nil
}
