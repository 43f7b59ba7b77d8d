package notifications

type ListNotificationsQuery struct {
	Limit      int  `query:"limit" json:"limit,omitempty" default:"24" validate:"min=1,max=100"`
	Offset     int  `query:"offset" json:"offset,omitempty" validate:"min=0"`
	UnreadOnly bool `query:"unread_only" json:"unread_only,omitempty"`
}
