package mongostore

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	eduAuth "github.com/MrEthical07/eduAuth"
)

// principalDocument is the stored shape of both collections. Learner fields
// are omitted from admin documents and profile_picture from user documents.
type principalDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	Email     string             `bson:"email"`
	Password  string             `bson:"password"`
	Mobile    string             `bson:"mobile"`
	OTP       string             `bson:"otp"`
	IsActive  bool               `bson:"is_active"`
	IsDeleted bool               `bson:"is_deleted"`
	CreatedAt time.Time          `bson:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at"`

	ProfilePicture string `bson:"profile_picture,omitempty"`

	Gender      string `bson:"gender,omitempty"`
	DateOfBirth string `bson:"date_of_birth,omitempty"`
	Address     string `bson:"address,omitempty"`
	City        string `bson:"city,omitempty"`
	State       string `bson:"state,omitempty"`
	Pincode     string `bson:"pincode,omitempty"`
	SchoolName  string `bson:"school_name,omitempty"`
	ClassName   string `bson:"class_name,omitempty"`
}

func toDocument(p *eduAuth.Principal) (principalDocument, error) {
	doc := principalDocument{
		Name:      p.Name,
		Email:     p.Email,
		Password:  p.PasswordHash,
		Mobile:    p.Mobile,
		OTP:       p.OTP,
		IsActive:  p.IsActive,
		IsDeleted: p.IsDeleted,
		CreatedAt: p.CreatedAt.UTC(),
		UpdatedAt: p.UpdatedAt.UTC(),
	}
	if p.ID != "" {
		id, err := primitive.ObjectIDFromHex(p.ID)
		if err != nil {
			return principalDocument{}, eduAuth.ErrPrincipalNotFound
		}
		doc.ID = id
	}
	if p.Admin != nil {
		doc.ProfilePicture = p.Admin.ProfilePicture
	}
	if p.User != nil {
		doc.Gender = p.User.Gender
		doc.DateOfBirth = p.User.DateOfBirth
		doc.Address = p.User.Address
		doc.City = p.User.City
		doc.State = p.User.State
		doc.Pincode = p.User.Pincode
		doc.SchoolName = p.User.SchoolName
		doc.ClassName = p.User.ClassName
	}
	return doc, nil
}

func (d principalDocument) principal(role eduAuth.Role) *eduAuth.Principal {
	p := &eduAuth.Principal{
		ID:           d.ID.Hex(),
		Role:         role,
		Name:         d.Name,
		Email:        d.Email,
		Mobile:       d.Mobile,
		PasswordHash: d.Password,
		OTP:          d.OTP,
		IsActive:     d.IsActive,
		IsDeleted:    d.IsDeleted,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
	if role == eduAuth.RoleAdmin {
		p.Admin = &eduAuth.AdminProfile{ProfilePicture: d.ProfilePicture}
	} else {
		p.User = &eduAuth.UserProfile{
			Gender:      d.Gender,
			DateOfBirth: d.DateOfBirth,
			Address:     d.Address,
			City:        d.City,
			State:       d.State,
			Pincode:     d.Pincode,
			SchoolName:  d.SchoolName,
			ClassName:   d.ClassName,
		}
	}
	return p
}
