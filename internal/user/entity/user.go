package entity

// User is an account document in the users collection. Password holds a bcrypt
// hash once stored; on register it carries the plaintext until the service hashes it.
// Email and LoginID are both unique handles.
type User struct {
	ID            string `json:"id" bson:"_id"`
	FirstName     string `json:"firstName" bson:"firstName"`
	LastName      string `json:"lastName" bson:"lastName"`
	Email         string `json:"email" bson:"email"`
	LoginID       string `json:"loginId" bson:"loginId"`
	Password      string `json:"password" bson:"password"`
	ContactNumber string `json:"contactNumber,omitempty" bson:"contactNumber,omitempty"`
	LoginStatus   bool   `json:"loginStatus" bson:"loginStatus"`
	Version       int64  `json:"version" bson:"version"`
}

func (u *User) GetID() string   { return u.ID }
func (u *User) SetID(id string) { u.ID = id }

// View is the outward projection of a user, without the password hash.
type View struct {
	ID            string `json:"id"`
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	Email         string `json:"email"`
	LoginID       string `json:"loginId"`
	ContactNumber string `json:"contactNumber,omitempty"`
	LoginStatus   bool   `json:"loginStatus"`
}

func (u User) View() View {
	return View{
		ID:            u.ID,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		Email:         u.Email,
		LoginID:       u.LoginID,
		ContactNumber: u.ContactNumber,
		LoginStatus:   u.LoginStatus,
	}
}

// Views projects a slice of users.
func Views(users []User) []View {
	out := make([]View, 0, len(users))
	for _, u := range users {
		out = append(out, u.View())
	}
	return out
}
