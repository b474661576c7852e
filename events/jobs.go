package events

import (
	"context"
	"log"

	"comicreel/pipeline"
)

// JobMessage asks a worker to run an action on a project
type JobMessage struct {
	ProjectID string `json:"project_id"`
	Action    string `json:"action"`
}

// JobStarter queues pipeline actions. Start returns once the job is
// registered; a cancel action stops the project's running job.
type JobStarter interface {
	Start(ctx context.Context, projectID string, action pipeline.Action) error
}

// NewJobHandler decodes job messages and hands them to the starter without
// waiting for them to finish, so a cancel behind a long render on the same
// partition is read straight away. Rejected jobs are logged and marked; only
// a shutdown before dispatch leaves the message for redelivery.
func NewJobHandler(starter JobStarter) *TypedMessageHandler[JobMessage] {
	return &TypedMessageHandler[JobMessage]{
		Validate: func(msg *JobMessage) bool {
			if msg.ProjectID == "" {
				log.Printf("Job missing project_id, skipping")
				return false
			}
			if _, err := pipeline.ParseAction(msg.Action); err != nil {
				log.Printf("Job for %s: %v, skipping", msg.ProjectID, err)
				return false
			}
			return true
		},
		Process: func(ctx context.Context, msg *JobMessage) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			action, _ := pipeline.ParseAction(msg.Action)

			if err := starter.Start(ctx, msg.ProjectID, action); err != nil {
				log.Printf("Job %s for project %s rejected: %v", action, msg.ProjectID, err)
				return nil
			}
			log.Printf("Dispatched %s for project %s", action, msg.ProjectID)
			return nil
		},
		AlwaysMark: true,
	}
}
