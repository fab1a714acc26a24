package directory

import "context"

// Field names a person attribute a terminal PIN can be matched against.
type Field string

// Resolvable fields, in the order scans try them. The PIN was derived from
// different source fields across enrollment generations, so older people may
// only match on a fallback field.
const (
	FieldDevicePIN   Field = "device_pin"
	FieldStudentNo   Field = "student_no"
	FieldEmployeeNo  Field = "employee_no"
	FieldBiometricID Field = "biometric_id"
)

// LookupOrder is the fixed resolution precedence; first non-empty hit wins.
var LookupOrder = []Field{FieldDevicePIN, FieldStudentNo, FieldEmployeeNo, FieldBiometricID}

// Finder is the directory lookup the resolver needs.
type Finder interface {
	FindByField(ctx context.Context, field Field, value string) (*Person, error)
}

// Resolver maps a device-local PIN to a Person by probing fields in order.
type Resolver struct {
	finder Finder
	order  []Field
}

// NewResolver creates a resolver with the standard lookup order.
func NewResolver(finder Finder) *Resolver {
	return &Resolver{finder: finder, order: LookupOrder}
}

// Resolve returns the first match, or (nil, nil) when no field matches.
func (r *Resolver) Resolve(ctx context.Context, pin string) (*Person, error) {
	if pin == "" {
		return nil, nil
	}
	for _, field := range r.order {
		p, err := r.finder.FindByField(ctx, field, pin)
		if err != nil {
			return nil, err
		}
		if p != nil {
			return p, nil
		}
	}
	return nil, nil
}
