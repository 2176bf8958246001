package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Supplier is a material supplier document.
type Supplier struct {
	ID            primitive.ObjectID `json:"id" bson:"_id"`
	Name          string             `json:"name" bson:"name"`
	ContactPerson string             `json:"contactPerson" bson:"contactPerson"`
	Email         string             `json:"email" bson:"email"`
	Phone         string             `json:"phone" bson:"phone"`
	Materials     string             `json:"materials" bson:"materials"`
	CreatedAt     time.Time          `json:"createdAt" bson:"createdAt"`
}

func (s Supplier) DocumentID() primitive.ObjectID { return s.ID }
func (s Supplier) Created() time.Time             { return s.CreatedAt }

type SupplierInput struct {
	Name          string `json:"name" validate:"required"`
	ContactPerson string `json:"contactPerson" validate:"required"`
	Email         string `json:"email" validate:"required"`
	Phone         string `json:"phone" validate:"required"`
	Materials     string `json:"materials" validate:"required"`
}

func (in SupplierInput) Build(now time.Time) Supplier {
	return in.BuildAs(primitive.NewObjectID(), now)
}

func (in SupplierInput) BuildAs(id primitive.ObjectID, created time.Time) Supplier {
	return Supplier{
		ID:            id,
		Name:          in.Name,
		ContactPerson: in.ContactPerson,
		Email:         in.Email,
		Phone:         in.Phone,
		Materials:     in.Materials,
		CreatedAt:     stamp(created),
	}
}

type SupplierPatch struct {
	Name          *string `json:"name" validate:"omitnil,min=1"`
	ContactPerson *string `json:"contactPerson" validate:"omitnil,min=1"`
	Email         *string `json:"email" validate:"omitnil,min=1"`
	Phone         *string `json:"phone" validate:"omitnil,min=1"`
	Materials     *string `json:"materials" validate:"omitnil,min=1"`
}

func (p SupplierPatch) Fields() map[string]any {
	fields := make(map[string]any)
	set := func(key string, v *string) {
		if v != nil {
			fields[key] = *v
		}
	}
	set("name", p.Name)
	set("contactPerson", p.ContactPerson)
	set("email", p.Email)
	set("phone", p.Phone)
	set("materials", p.Materials)
	return fields
}
