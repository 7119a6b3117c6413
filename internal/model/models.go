package model

import "time"

// StorageTier is the access tier assigned to an archived object
type StorageTier string

const (
	TierHot     StorageTier = "Hot"
	TierCool    StorageTier = "Cool"
	TierCold    StorageTier = "Cold"
	TierArchive StorageTier = "Archive"
)

// SourceObject is one extract file in the source object store
type SourceObject struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	Size      int64     `json:"size"`
}

// ArchiveTransition records one source object moved to the archive container
type ArchiveTransition struct {
	Source      string      `json:"source"`
	Destination string      `json:"destination"`
	Tier        StorageTier `json:"tier"`
}
