package entity

import (
	"encoding/json"
	"time"
)

// Well-known settings records.
const (
	SettingsSite    = "site"
	SettingsRewards = "rewards"
)

// Settings is a singleton record per domain, keyed by name.
type Settings struct {
	Name      string         `json:"name"`
	Values    map[string]any `json:"values"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// Collection names used in the soft-delete log.
const (
	CollectionUsers      = "users"
	CollectionCategories = "categories"
	CollectionPosts      = "posts"
	CollectionReplies    = "replies"
	CollectionMeets      = "meets"
)

// DeletedRecord is an entry of the soft-delete log. Data holds the record as it
// was right before deletion.
type DeletedRecord struct {
	Collection string          `json:"collection"`
	ID         string          `json:"id"`
	DeletedAt  time.Time       `json:"deletedAt"`
	Data       json.RawMessage `json:"data"`
}

// InitMarker is persisted once seeding finished, so other processes sharing the
// backend skip seeding.
type InitMarker struct {
	InitializedAt       time.Time `json:"initializedAt"`
	IncludeSampleGroups bool      `json:"includeSampleGroups"`
}

// Stats is the derived read-only view over all collections.
type Stats struct {
	TotalUsers    int          `json:"totalUsers"`
	ActiveUsers   int          `json:"activeUsers"`
	InactiveUsers int          `json:"inactiveUsers"`
	UsersByRole   map[Role]int `json:"usersByRole"`

	TotalCategories int `json:"totalCategories"`
	TotalPosts      int `json:"totalPosts"`
	HiddenPosts     int `json:"hiddenPosts"`
	LockedPosts     int `json:"lockedPosts"`
	TotalReplies    int `json:"totalReplies"`
	TotalMeets      int `json:"totalMeets"`
	TotalRSVPs      int `json:"totalRsvps"`
	DeletedRecords  int `json:"deletedRecords"`

	// EngagementRate is distinct authors of posts or replies over total users.
	EngagementRate      float64 `json:"engagementRate"`
	NewUsersLast7Days   int     `json:"newUsersLast7Days"`
	ActiveUsersLast30   int     `json:"activeUsersLast30Days"`
	PostsLast30Days     int     `json:"postsLast30Days"`
	AveragePostsPerUser float64 `json:"averagePostsPerUser"`

	GeneratedAt time.Time `json:"generatedAt"`
}

// Dump is every record of the store, soft-deleted ones included.
type Dump struct {
	Users      []*User          `json:"users"`
	Categories []*Category      `json:"categories"`
	Posts      []*Post          `json:"posts"`
	Replies    []*Reply         `json:"replies"`
	Meets      []*Meet          `json:"meets"`
	Tokens     []*ResetToken    `json:"tokens"`
	Settings   []*Settings      `json:"settings"`
	Deleted    []*DeletedRecord `json:"deleted"`
	Marker     *InitMarker      `json:"marker,omitempty"`
	ExportedAt time.Time        `json:"exportedAt"`
}

// SystemStatus reports the init state, the active backend and current stats.
type SystemStatus struct {
	IsInitialized bool   `json:"isInitialized"`
	State         string `json:"state"`
	StorageType   string `json:"storageType"`
	Backend       string `json:"backend"`
	Stats         Stats  `json:"stats"`
}
