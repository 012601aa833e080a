package models

// All lists every persisted model in migration order.
func All() []any {
	return []any{
		&User{},
		&Hospital{},
		&HospitalUnit{},
		&JobPosting{},
		&Assignment{},
		&CheckIn{},
		&CheckOut{},
		&AssignmentEvent{},
		&IdempotencyRecord{},
	}
}
