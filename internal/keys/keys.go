// Package keys defines the closed set of entity kinds and the key builders
// that keep unrelated kinds from colliding in the shared table.
package keys

// Kind tags a logical entity table within the shared physical table.
type Kind string

const (
	User           Kind = "USR"
	Role           Kind = "ROLE"
	RolePermission Kind = "ROLE_PERMISSION"
	Bumper         Kind = "BUMPERS"
	Category       Kind = "CATEGORY"
	Brand          Kind = "BRAND"
	Product        Kind = "PRODUCT"
)

// Partition returns the partition key for the kind's descriptive records.
func (k Kind) Partition() string {
	return string(k)
}

// Membership returns the partition key for an entity's relationship rows:
// the owner's id doubles as the partition, each member's id as the sort key.
func Membership(ownerID string) string {
	return ownerID
}

// Audit returns the append-only log partition for a kind. The prefix keeps
// audit rows out of the kind's own partition.
func Audit(k Kind) string {
	return "AUDIT#" + string(k)
}
