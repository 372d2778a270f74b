package core

// DBOrdering is a single ORDER BY term; fields are whitelisted by each
// repository before being interpolated.
type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}
