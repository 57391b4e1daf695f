package types

// Notification is a desktop notification payload built from create options
type Notification struct {
	Title   string               `json:"title"`
	Message string               `json:"message"`
	IconURL string               `json:"icon_url,omitempty"`
	Buttons []NotificationButton `json:"buttons,omitempty"`
}

// NotificationButton is one of at most two actionable buttons
type NotificationButton struct {
	Title string `json:"title"`
}
