package organization

import (
	"strings"

	"github.com/frahmantamala/workforce-console/internal/core/common/validation"
)

type CreateOrganizationRequest struct {
	Name string `json:"name"`
}

func (r *CreateOrganizationRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if err := validation.ValidateName("name", r.Name); err != nil {
		return err
	}
	return nil
}

type CreateDepartmentRequest struct {
	Name string `json:"name"`
}

func (r *CreateDepartmentRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if err := validation.ValidateName("name", r.Name); err != nil {
		return err
	}
	return nil
}
