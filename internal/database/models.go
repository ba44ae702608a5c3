package database

import "time"

// Album groups photos. Slug is derived from Name and unique.
type Album struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"createdAt"`
}

// Photo references one stored blob and belongs to exactly one album.
type Photo struct {
	ID          int64     `json:"id"`
	AlbumID     int64     `json:"albumId"`
	BlobKey     string    `json:"blobKey"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"contentType"`
	ByteSize    int64     `json:"byteSize"`
	CreatedAt   time.Time `json:"createdAt"`
}

// TaskStatus is the lifecycle state of a persisted background task.
type TaskStatus string

const (
	TaskPending TaskStatus = "pending"
	TaskRunning TaskStatus = "running"
	TaskDone    TaskStatus = "done"
	TaskFailed  TaskStatus = "failed"
)

// Task is a unit of background work as stored in the tasks table.
type Task struct {
	ID        string     `json:"id"`
	Kind      string     `json:"kind"`
	Payload   []byte     `json:"-"`
	Status    TaskStatus `json:"status"`
	Attempts  int        `json:"attempts"`
	LastError string     `json:"lastError,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}
