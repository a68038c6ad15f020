package meeting

// Patch is a partial update. Nil fields are left untouched. There is no
// identifier, creation-time or status field, so none of them can be
// overwritten. Status moves through Cancel and MarkAsCompleted.
type Patch struct {
	Title            *string   `json:"title,omitempty"`
	Description      *string   `json:"description,omitempty"`
	Type             *Type     `json:"type,omitempty"`
	Date             *string   `json:"date,omitempty"`
	StartTime        *string   `json:"startTime,omitempty"`
	EndTime          *string   `json:"endTime,omitempty"`
	Location         *string   `json:"location,omitempty"`
	Organizer        *string   `json:"organizer,omitempty"`
	Attendees        *string   `json:"attendees,omitempty"`
	ExternalEmails   *string   `json:"externalEmails,omitempty"`
	Agenda           *string   `json:"agenda,omitempty"`
	Notes            *string   `json:"notes,omitempty"`
	Priority         *Priority `json:"priority,omitempty"`
	Reminders        *[]int    `json:"reminders,omitempty"`
	Recurrence       *string   `json:"recurrence,omitempty"`
	FeedbackScore    *int      `json:"feedbackScore,omitempty"`
	FeedbackComments *string   `json:"feedbackComments,omitempty"`
}

// TouchesSchedule reports whether the patch moves the meeting in time.
func (p Patch) TouchesSchedule() bool {
	return p.Date != nil || p.StartTime != nil || p.EndTime != nil
}

// TouchesResources reports whether the patch changes where the meeting is held
// or who attends it.
func (p Patch) TouchesResources() bool {
	return p.Type != nil || p.Location != nil || p.Attendees != nil
}

// Empty reports whether the patch carries no changes.
func (p Patch) Empty() bool {
	return p == Patch{}
}

func (p Patch) apply(m *Meeting) {
	setString(&m.Title, p.Title)
	setString(&m.Description, p.Description)
	setString(&m.Date, p.Date)
	setString(&m.StartTime, p.StartTime)
	setString(&m.EndTime, p.EndTime)
	setString(&m.Location, p.Location)
	setString(&m.Organizer, p.Organizer)
	setString(&m.Attendees, p.Attendees)
	setString(&m.ExternalEmails, p.ExternalEmails)
	setString(&m.Agenda, p.Agenda)
	setString(&m.Notes, p.Notes)
	setString(&m.Recurrence, p.Recurrence)
	setString(&m.FeedbackComments, p.FeedbackComments)
	if p.Type != nil {
		m.Type = *p.Type
	}
	if p.Priority != nil {
		m.Priority = *p.Priority
	}
	if p.Reminders != nil {
		m.Reminders = append([]int(nil), (*p.Reminders)...)
	}
	if p.FeedbackScore != nil {
		score := *p.FeedbackScore
		m.FeedbackScore = &score
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
