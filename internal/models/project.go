package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Project is a construction project document.
type Project struct {
	ID        primitive.ObjectID `json:"id" bson:"_id"`
	Name      string             `json:"name" bson:"name"`
	Location  string             `json:"location" bson:"location"`
	StartDate time.Time          `json:"startDate" bson:"startDate"`
	EndDate   time.Time          `json:"endDate" bson:"endDate"`
	Budget    float64            `json:"budget" bson:"budget"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
}

func (p Project) DocumentID() primitive.ObjectID { return p.ID }
func (p Project) Created() time.Time             { return p.CreatedAt }

// ProjectInput is the body of POST /projects.
type ProjectInput struct {
	Name      string  `json:"name" validate:"required"`
	Location  string  `json:"location" validate:"required"`
	StartDate *Date   `json:"startDate" validate:"required"`
	EndDate   *Date   `json:"endDate" validate:"required"`
	Budget    *Amount `json:"budget" validate:"required"`
}

// Build turns a validated input into a new document stamped with now.
func (in ProjectInput) Build(now time.Time) Project {
	return in.BuildAs(primitive.NewObjectID(), now)
}

// BuildAs is Build with a caller-chosen id and creation time.
func (in ProjectInput) BuildAs(id primitive.ObjectID, created time.Time) Project {
	return Project{
		ID:        id,
		Name:      in.Name,
		Location:  in.Location,
		StartDate: in.StartDate.value(),
		EndDate:   in.EndDate.value(),
		Budget:    in.Budget.value(),
		CreatedAt: stamp(created),
	}
}

// ProjectPatch is the body of PUT /projects/{id}. Nil fields are left untouched.
type ProjectPatch struct {
	Name      *string `json:"name" validate:"omitnil,min=1"`
	Location  *string `json:"location" validate:"omitnil,min=1"`
	StartDate *Date   `json:"startDate"`
	EndDate   *Date   `json:"endDate"`
	Budget    *Amount `json:"budget"`
}

// Fields returns the supplied fields keyed by document field name.
func (p ProjectPatch) Fields() map[string]any {
	fields := make(map[string]any)
	if p.Name != nil {
		fields["name"] = *p.Name
	}
	if p.Location != nil {
		fields["location"] = *p.Location
	}
	if p.StartDate != nil {
		fields["startDate"] = p.StartDate.value()
	}
	if p.EndDate != nil {
		fields["endDate"] = p.EndDate.value()
	}
	if p.Budget != nil {
		fields["budget"] = p.Budget.value()
	}
	return fields
}
