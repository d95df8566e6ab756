package httpapi

import (
	"time"

	"github.com/louisbranch/cardpress/internal/services/cards/domain"
	"github.com/louisbranch/cardpress/internal/services/cards/intake"
	"github.com/louisbranch/cardpress/internal/services/cards/issuance"
	"github.com/louisbranch/cardpress/internal/services/cards/storage"
)

type tokenView struct {
	Code      string     `json:"code"`
	Used      bool       `json:"used"`
	CreatedBy string     `json:"created_by"`
	UsedBy    string     `json:"used_by,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
}

func newTokenView(token storage.Token) tokenView {
	view := tokenView{
		Code:      token.Code,
		Used:      token.Used,
		CreatedBy: token.CreatedBy,
		UsedBy:    token.UsedBy,
		CreatedAt: token.CreatedAt,
	}
	if !token.UsedAt.IsZero() {
		usedAt := token.UsedAt
		view.UsedAt = &usedAt
	}
	return view
}

type cardView struct {
	ID              int64     `json:"id"`
	SubjectID       string    `json:"subject_id"`
	Name            string    `json:"name"`
	Father          string    `json:"father"`
	Phone           string    `json:"phone"`
	Department      string    `json:"department"`
	BloodGroup      string    `json:"blood_group"`
	StudentID       string    `json:"student_id"`
	InstitutionID   string    `json:"institution_id"`
	InstitutionName string    `json:"institution_name"`
	Authority       string    `json:"authority"`
	Payload         string    `json:"payload"`
	ArtifactPath    string    `json:"artifact_path"`
	TokenCode       string    `json:"token_code"`
	CreatedAt       time.Time `json:"created_at"`
}

func newCardView(record storage.IssuanceRecord) cardView {
	return cardView{
		ID:              record.ID,
		SubjectID:       record.SubjectID,
		Name:            record.Name,
		Father:          record.Father,
		Phone:           record.Phone,
		Department:      record.Department,
		BloodGroup:      record.BloodGroup,
		StudentID:       record.StudentID,
		InstitutionID:   record.InstitutionID,
		InstitutionName: record.InstitutionName,
		Authority:       record.Authority,
		Payload:         record.Payload,
		ArtifactPath:    record.ArtifactPath,
		TokenCode:       record.TokenCode,
		CreatedAt:       record.CreatedAt,
	}
}

func newCardViews(records []storage.IssuanceRecord) []cardView {
	views := make([]cardView, 0, len(records))
	for _, record := range records {
		views = append(views, newCardView(record))
	}
	return views
}

type institutionView struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	ShortName   string   `json:"short_name"`
	Departments []string `json:"departments,omitempty"`
}

func newInstitutionViews(institutions []domain.Institution) []institutionView {
	views := make([]institutionView, 0, len(institutions))
	for _, inst := range institutions {
		views = append(views, institutionView{
			ID:          inst.ID,
			Name:        inst.Name,
			ShortName:   inst.ShortName,
			Departments: inst.Departments,
		})
	}
	return views
}

type institutionCountView struct {
	InstitutionID   string `json:"institution_id"`
	InstitutionName string `json:"institution_name"`
	Count           int    `json:"count"`
}

type statsView struct {
	Tokens struct {
		Total     int `json:"total"`
		Used      int `json:"used"`
		Available int `json:"available"`
	} `json:"tokens"`
	Cards struct {
		Total         int                    `json:"total"`
		Recent        int                    `json:"recent"`
		RecentSince   time.Time              `json:"recent_since"`
		ByInstitution []institutionCountView `json:"by_institution"`
	} `json:"cards"`
	Subjects struct {
		Total int `json:"total"`
	} `json:"subjects"`
}

func newStatsView(report issuance.Report) statsView {
	var view statsView
	view.Tokens.Total = report.Tokens.Total
	view.Tokens.Used = report.Tokens.Used
	view.Tokens.Available = report.Tokens.Available
	view.Cards.Total = report.Issuances.Total
	view.Cards.Recent = report.Issuances.Recent
	view.Cards.RecentSince = report.Issuances.RecentSince
	view.Subjects.Total = report.Subjects.Total
	view.Cards.ByInstitution = make([]institutionCountView, 0, len(report.Issuances.ByInstitution))
	for _, count := range report.Issuances.ByInstitution {
		view.Cards.ByInstitution = append(view.Cards.ByInstitution, institutionCountView(count))
	}
	return view
}

type subjectView struct {
	ID        string    `json:"id"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
	CardCount int       `json:"card_count"`
}

func newSubjectViews(subjects []storage.Subject) []subjectView {
	views := make([]subjectView, 0, len(subjects))
	for _, subject := range subjects {
		views = append(views, subjectView{
			ID:        subject.ID,
			FirstSeen: subject.FirstSeen,
			LastSeen:  subject.LastSeen,
			CardCount: subject.CardCount,
		})
	}
	return views
}

type replyView struct {
	State        string            `json:"state"`
	Prompt       string            `json:"prompt"`
	Institutions []institutionView `json:"institutions,omitempty"`
	Card         *cardView         `json:"card,omitempty"`
}

func newReplyView(reply intake.Reply) replyView {
	view := replyView{State: reply.State.String(), Prompt: reply.Prompt}
	if len(reply.Institutions) > 0 {
		view.Institutions = newInstitutionViews(reply.Institutions)
		for i := range view.Institutions {
			view.Institutions[i].Departments = nil
		}
	}
	if reply.Record != nil {
		card := newCardView(*reply.Record)
		view.Card = &card
	}
	return view
}
