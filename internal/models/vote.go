package models

import (
	"fmt"
	"time"
)

// TargetKind discriminates what a vote points at.
type TargetKind string

const (
	TargetPost    TargetKind = "post"
	TargetComment TargetKind = "comment"
)

func (k TargetKind) Valid() bool {
	return k == TargetPost || k == TargetComment
}

// Target identifies a votable entity. Post and comment identifiers live in
// separate namespaces, so a target is always qualified by its kind.
type Target struct {
	Kind TargetKind `json:"type"`
	ID   string     `json:"id"`
}

func PostTarget(id string) Target    { return Target{Kind: TargetPost, ID: id} }
func CommentTarget(id string) Target { return Target{Kind: TargetComment, ID: id} }

func (t Target) String() string {
	return string(t.Kind) + ":" + t.ID
}

// Direction of a vote.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case Up, Down:
		return Direction(s), nil
	}
	return "", fmt.Errorf("invalid vote direction %q", s)
}

func (d Direction) IsDown() bool { return d == Down }

func directionOf(down bool) Direction {
	if down {
		return Down
	}
	return Up
}

// Vote model - at most one per (voter, target).
type Vote struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	VoterID    string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_votes_voter_target,priority:1" json:"voter"`
	TargetType string    `gorm:"size:16;not null;uniqueIndex:idx_votes_voter_target,priority:2;index:idx_votes_target,priority:1" json:"target_type"`
	TargetID   string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_votes_voter_target,priority:3;index:idx_votes_target,priority:2" json:"target_id"`
	Down       bool      `gorm:"not null" json:"down"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (v *Vote) Target() Target {
	return Target{Kind: TargetKind(v.TargetType), ID: v.TargetID}
}

func (v *Vote) SetTarget(t Target) {
	v.TargetType = string(t.Kind)
	v.TargetID = t.ID
}

func (v *Vote) Direction() Direction {
	return directionOf(v.Down)
}

type CastVoteRequest struct {
	TargetType string `json:"target_type" binding:"required,oneof=post comment"`
	TargetID   string `json:"target_id" binding:"required"`
	Direction  string `json:"direction" binding:"required,oneof=up down"`
}

type SetDirectionRequest struct {
	Direction string `json:"direction" binding:"required,oneof=up down"`
}

// Tally counts up and down votes.
func Tally(votes []Vote) (up, down int) {
	for _, v := range votes {
		if v.Down {
			down++
		} else {
			up++
		}
	}
	return up, down
}
