package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/medical-appointment-scheduling/internal/appointment"
	"github.com/hackgods/medical-appointment-scheduling/internal/sentinel"
)

// RegistryClient talks to the patient registry and to the doctor registry,
// which also hosts the slot ledger. Point one instance at each base URL.
type RegistryClient struct {
	baseURL string
	http    *http.Client
}

func NewRegistryClient(baseURL string, timeout time.Duration) *RegistryClient {
	return &RegistryClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type patientPayload struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Phone string    `json:"phone"`
}

type doctorPayload struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	FullName  string    `json:"fullName"`
	Specialty string    `json:"specialty"`
}

type slotPayload struct {
	ID     uuid.UUID `json:"id"`
	State  string    `json:"state"`
	Holder string    `json:"holder"`
}

type holderPayload struct {
	Holder string `json:"holder"`
}

func (c *RegistryClient) GetPatient(ctx context.Context, id uuid.UUID) (appointment.PatientRef, error) {
	var p patientPayload
	status, err := c.do(ctx, http.MethodGet, "/patients/"+id.String(), nil, &p)
	if err != nil {
		return appointment.PatientRef{}, err
	}
	if status == http.StatusNotFound {
		return appointment.PatientRef{}, fmt.Errorf("patient %s: %w", id, sentinel.ErrNotFound)
	}
	if status != http.StatusOK {
		return appointment.PatientRef{}, unexpected("get patient", status)
	}
	return appointment.PatientRef{ID: p.ID, Name: p.Name, Email: p.Email, Phone: p.Phone}, nil
}

func (c *RegistryClient) GetDoctor(ctx context.Context, id uuid.UUID) (appointment.DoctorRef, error) {
	var d doctorPayload
	status, err := c.do(ctx, http.MethodGet, "/doctors/"+id.String(), nil, &d)
	if err != nil {
		return appointment.DoctorRef{}, err
	}
	if status == http.StatusNotFound {
		return appointment.DoctorRef{}, fmt.Errorf("doctor %s: %w", id, sentinel.ErrNotFound)
	}
	if status != http.StatusOK {
		return appointment.DoctorRef{}, unexpected("get doctor", status)
	}
	name := d.FullName
	if name == "" {
		name = d.Name
	}
	return appointment.DoctorRef{ID: d.ID, Name: name, Specialty: d.Specialty}, nil
}

// Reserve maps 404 and 409 to false: the slot is simply not bookable.
func (c *RegistryClient) Reserve(ctx context.Context, slotID uuid.UUID, holder string) (bool, error) {
	status, err := c.do(ctx, http.MethodPatch, "/slots/"+slotID.String()+"/reserve", holderPayload{Holder: holder}, nil)
	if err != nil {
		return false, err
	}
	switch status {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound, http.StatusConflict:
		return false, nil
	default:
		return false, unexpected("reserve slot", status)
	}
}

func (c *RegistryClient) Release(ctx context.Context, slotID uuid.UUID, holder string) error {
	status, err := c.do(ctx, http.MethodPatch, "/slots/"+slotID.String()+"/release", holderPayload{Holder: holder}, nil)
	if err != nil {
		return err
	}
	switch status {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return fmt.Errorf("slot %s: %w", slotID, sentinel.ErrNotFound)
	case http.StatusConflict:
		return fmt.Errorf("slot %s held by another holder: %w", slotID, sentinel.ErrConflict)
	default:
		return unexpected("release slot", status)
	}
}

func (c *RegistryClient) SlotHolder(ctx context.Context, slotID uuid.UUID) (string, error) {
	var s slotPayload
	status, err := c.do(ctx, http.MethodGet, "/slots/"+slotID.String(), nil, &s)
	if err != nil {
		return "", err
	}
	if status == http.StatusNotFound {
		return "", fmt.Errorf("slot %s: %w", slotID, sentinel.ErrNotFound)
	}
	if status != http.StatusOK {
		return "", unexpected("get slot", status)
	}
	return s.Holder, nil
}

// do sends the request and decodes a 200 body into out. Transport failures
// and 5xx answers are reported as sentinel.ErrUnavailable; other statuses are
// returned for the caller to interpret.
func (c *RegistryClient) do(ctx context.Context, method, path string, in, out any) (int, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w: %w", method, path, sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, fmt.Errorf("%s %s returned %d: %w", method, path, resp.StatusCode, sentinel.ErrUnavailable)
	}

	if resp.StatusCode == http.StatusOK && out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode %s response: %w", path, err)
		}
		return resp.StatusCode, nil
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

func unexpected(op string, status int) error {
	return fmt.Errorf("%s: unexpected status %d", op, status)
}
