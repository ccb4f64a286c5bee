// Package types defines the entities shared across Tanaste's storage,
// scoring, and ingestion layers.
package types

import (
	"time"

	"github.com/google/uuid"
)

// NewID returns a new opaque 128-bit identifier in lowercase hyphenated form.
func NewID() string {
	return uuid.NewString()
}

// Now returns the current instant in UTC at full precision; FormatTime
// persists it with nanoseconds. Tests may not substitute it directly, but every
// caller reads through this seam so a future clock injection point exists
// in one place.
func Now() time.Time {
	return time.Now().UTC()
}

// FormatTime renders t in the lexically sortable textual form persisted
// to storage and sidecars.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ParseTime parses a timestamp produced by FormatTime.
func ParseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// MediaType enumerates the kinds of media Tanaste organises.
type MediaType string

const (
	MediaUnknown MediaType = "Unknown"
	MediaEbook   MediaType = "Ebook"
	MediaComic   MediaType = "Comic"
	MediaVideo   MediaType = "Video"
	MediaAudio   MediaType = "Audio"
)

// IsValid reports whether m is one of the known media types.
func (m MediaType) IsValid() bool {
	switch m {
	case MediaUnknown, MediaEbook, MediaComic, MediaVideo, MediaAudio:
		return true
	}
	return false
}

// Category returns the coarse organisational bucket for a media type,
// used by the {Category} organiser token.
func (m MediaType) Category() string {
	switch m {
	case MediaEbook:
		return "Books"
	case MediaComic:
		return "Comics"
	case MediaVideo:
		return "Videos"
	case MediaAudio:
		return "Audio"
	default:
		return "Other"
	}
}

// AssetStatus is the lifecycle state of a MediaAsset.
type AssetStatus string

const (
	AssetNormal     AssetStatus = "Normal"
	AssetConflicted AssetStatus = "Conflicted"
	AssetOrphaned   AssetStatus = "Orphaned"
)

func (s AssetStatus) IsValid() bool {
	switch s {
	case AssetNormal, AssetConflicted, AssetOrphaned:
		return true
	}
	return false
}

// EntityType tags the polymorphic owner of a claim or canonical value.
type EntityType string

const (
	EntityHub     EntityType = "hub"
	EntityWork    EntityType = "work"
	EntityEdition EntityType = "edition"
	EntityAsset   EntityType = "asset"
	EntityPerson  EntityType = "person"
)

func (e EntityType) IsValid() bool {
	switch e {
	case EntityHub, EntityWork, EntityEdition, EntityAsset, EntityPerson:
		return true
	}
	return false
}

// PersonRole is the capacity in which a Person is credited.
type PersonRole string

const (
	RoleAuthor   PersonRole = "Author"
	RoleNarrator PersonRole = "Narrator"
	RoleDirector PersonRole = "Director"
)

func (r PersonRole) IsValid() bool {
	switch r {
	case RoleAuthor, RoleNarrator, RoleDirector:
		return true
	}
	return false
}

// ProfileRole is the access level of a Profile.
type ProfileRole string

const (
	ProfileAdministrator ProfileRole = "Administrator"
	ProfileCurator       ProfileRole = "Curator"
	ProfileConsumer      ProfileRole = "Consumer"
)

func (r ProfileRole) IsValid() bool {
	switch r {
	case ProfileAdministrator, ProfileCurator, ProfileConsumer:
		return true
	}
	return false
}

// UnassignedHubID is the sentinel hub that absorbs works whose hub was
// deleted, so no Work is ever left without a parent.
const UnassignedHubID = "00000000-0000-0000-0000-000000000000"

// Hub groups every edition of a single story across formats.
type Hub struct {
	ID         string
	UniverseID *string
	Name       string
	CreatedAt  time.Time
}

// Work is one title within a Hub, fixed to a media type at creation.
type Work struct {
	ID            string
	HubID         string
	MediaType     MediaType
	SequenceIndex *int
}

// Edition is one physical version of a Work.
type Edition struct {
	ID           string
	WorkID       string
	FormatLabel  *string
}

// MediaAsset is one file on disk, identified permanently by content hash.
type MediaAsset struct {
	ID           string
	EditionID    string
	ContentHash  string
	PathRoot     string
	Status       AssetStatus
}

// MetadataClaim is a single append-only statement about a field's value.
type MetadataClaim struct {
	ID           string
	EntityID     string
	EntityType   EntityType
	ProviderID   string
	Key          string
	Value        string
	Confidence   float64
	ClaimedAt    time.Time
	IsUserLocked bool
}

// CanonicalValue is the materialised winner for one (entity, field).
type CanonicalValue struct {
	EntityID     string
	EntityType   EntityType
	Key          string
	Value        string
	LastScoredAt time.Time
	IsConflicted bool
}

// Person is an author/narrator/director credited on one or more assets.
type Person struct {
	ID               string
	Name             string
	Role             PersonRole
	ExternalID       *string
	PortraitURL      *string
	Biography        *string
	CreatedAt        time.Time
	EnrichedAt       *time.Time
}

// PersonMediaLink is the idempotent junction between a Person and an asset.
type PersonMediaLink struct {
	AssetID  string
	PersonID string
	Role     PersonRole
}

// ApiKey never persists its plaintext; only a salted hash.
type ApiKey struct {
	ID        string
	Label     string
	Role      ProfileRole
	Hash      string
	CreatedAt time.Time
}

// Profile is a named accessor of the library.
type Profile struct {
	ID        string
	Name      string
	Role      ProfileRole
	CreatedAt time.Time
}

// TransactionLogEntry is a monotonic audit row for a claim-store mutation.
type TransactionLogEntry struct {
	ID         string
	EntityID   string
	EntityType EntityType
	Operation  string
	Actor      string
	OccurredAt time.Time
	Detail     string
}
