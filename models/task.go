// Package models - Model metadata, task kinds and class labels.
package models

import "slices"

// Task identifies which decode path a model's outputs require.
type Task string

const (
	// TaskDetect produces boxes with class scores.
	TaskDetect Task = "detect"
	// TaskSegment produces boxes with mask coefficients plus a prototype tensor.
	TaskSegment Task = "segment"
	// TaskPose produces boxes with trailing keypoints.
	TaskPose Task = "pose"
	// TaskClassify produces a single score vector.
	TaskClassify Task = "classify"
)

// Tasks lists every task with a decode path.
var Tasks = []Task{TaskDetect, TaskSegment, TaskPose, TaskClassify}

// Known reports whether a decode path exists for the task.
func (t Task) Known() bool {
	return slices.Contains(Tasks, t)
}

// Letterboxed reports whether the task's input is letterboxed (as opposed to
// center cropped).
func (t Task) Letterboxed() bool {
	return t != TaskClassify
}

func (t Task) String() string { return string(t) }
