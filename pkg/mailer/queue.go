package mailer

import (
	"context"

	"github.com/oksasatya/feedstream/pkg/helpers"
)

// Queue publishes email jobs to a RabbitMQ queue for the worker.
type Queue struct {
	Pub  *helpers.RabbitPublisher
	Name string
}

func NewQueue(pub *helpers.RabbitPublisher, name string) *Queue {
	return &Queue{Pub: pub, Name: name}
}

func (q *Queue) Enqueue(ctx context.Context, job EmailJob) error {
	return q.Pub.PublishJSON(ctx, q.Name, job)
}
