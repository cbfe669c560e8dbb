package domain

import "time"

// NoticeKind selects how a notice is presented
type NoticeKind string

const (
	NoticeSuccess     NoticeKind = "success"
	NoticeInfo        NoticeKind = "info"
	NoticeDestructive NoticeKind = "destructive"
)

// Notice is a user-visible message produced by a store mutation
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Title   string     `json:"title"`
	Message string     `json:"message"`
	At      time.Time  `json:"at"`
}
