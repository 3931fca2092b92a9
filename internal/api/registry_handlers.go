package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hackgods/medical-appointment-scheduling/internal/registry"
)

type RegistryService interface {
	RegisterPatient(ctx context.Context, in registry.NewPatient) (*registry.Patient, error)
	GetPatient(ctx context.Context, id uuid.UUID) (*registry.Patient, error)
	UpdatePatient(ctx context.Context, id uuid.UUID, u registry.PatientUpdate) (*registry.Patient, error)
	FindPatientByIdentification(ctx context.Context, identification string) (*registry.Patient, error)
	ListPatients(ctx context.Context, limit, offset int) ([]registry.Patient, error)
	SearchPatients(ctx context.Context, query string) ([]registry.Patient, error)
	RegisterDoctor(ctx context.Context, in registry.NewDoctor) (*registry.Doctor, error)
	GetDoctor(ctx context.Context, id uuid.UUID) (*registry.Doctor, error)
	ListDoctors(ctx context.Context) ([]registry.Doctor, error)
	SearchDoctors(ctx context.Context, query string) ([]registry.Doctor, error)
}

var registryErrorCodes = []errorCode{
	{registry.ErrPatientNotFound, "patient_not_found"},
	{registry.ErrDoctorNotFound, "doctor_not_found"},
	{registry.ErrDuplicatePatient, "duplicate_patient"},
	{registry.ErrEmptySearch, "empty_search"},
	{registry.ErrEmptyUpdate, "empty_update"},
}

func createPatientHandler(svc RegistryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreatePatientRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		in := registry.NewPatient{
			Identification: req.Identification,
			Name:           req.Name,
			Email:          req.Email,
			Phone:          req.Phone,
			Address:        req.Address.toAddress(),
		}
		if req.IdentificationType != "" {
			in.IdentificationType, _ = registry.ParseIdentificationType(req.IdentificationType)
		}
		if req.Gender != "" {
			in.Gender, _ = registry.ParseGender(req.Gender)
		}
		if req.BirthDate != "" {
			birthDate, ok := parseDate(req.BirthDate)
			if !ok {
				writeError(w, http.StatusBadRequest, "invalid_birth_date", "birthDate must be YYYY-MM-DD")
				return
			}
			in.BirthDate = birthDate
		}

		p, err := svc.RegisterPatient(r.Context(), in)
		if err != nil {
			handleError(w, r, err, registryErrorCodes...)
			return
		}

		writeJSON(w, http.StatusCreated, CreatedResponse{ID: p.ID, Message: "patient registered"})
	}
}

func updatePatientHandler(svc RegistryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, chi.URLParam(r, "id"), "invalid_patient_id")
		if !ok {
			return
		}

		var req UpdatePatientRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		u := registry.PatientUpdate{Email: req.Email, Phone: req.Phone}
		if req.Address != nil {
			addr := req.Address.toAddress()
			u.Address = &addr
		}
		if req.Status != nil {
			status, _ := registry.ParsePatientStatus(*req.Status)
			u.Status = &status
		}

		p, err := svc.UpdatePatient(r.Context(), id, u)
		if err != nil {
			handleError(w, r, err, registryErrorCodes...)
			return
		}
		writeJSON(w, http.StatusOK, toPatientResponse(*p))
	}
}

// updateAddressHandler replaces the patient's home address.
func updateAddressHandler(svc RegistryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, chi.URLParam(r, "id"), "invalid_patient_id")
		if !ok {
			return
		}

		var req AddressRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		addr := req.toAddress()
		if _, err := svc.UpdatePatient(r.Context(), id, registry.PatientUpdate{Address: &addr}); err != nil {
			handleError(w, r, err, registryErrorCodes...)
			return
		}
		writeJSON(w, http.StatusOK, MessageResponse{Message: "address updated"})
	}
}

func getPatientByIdentificationHandler(svc RegistryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := svc.FindPatientByIdentification(r.Context(), chi.URLParam(r, "identification"))
		if err != nil {
			handleError(w, r, err, registryErrorCodes...)
			return
		}
		writeJSON(w, http.StatusOK, toPatientResponse(*p))
	}
}

func validatePatientHandler(svc RegistryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, err := svc.FindPatientByIdentification(r.Context(), chi.URLParam(r, "identification"))
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, PatientExistsResponse{Exists: true})
		case errors.Is(err, registry.ErrPatientNotFound):
			writeJSON(w, http.StatusOK, PatientExistsResponse{Exists: false})
		default:
			handleError(w, r, err, registryErrorCodes...)
		}
	}
}

func getPatientHandler(svc RegistryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, chi.URLParam(r, "id"), "invalid_patient_id")
		if !ok {
			return
		}

		p, err := svc.GetPatient(r.Context(), id)
		if err != nil {
			handleError(w, r, err, registryErrorCodes...)
			return
		}
		writeJSON(w, http.StatusOK, toPatientResponse(*p))
	}
}

func listPatientsHandler(svc RegistryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

		patients, err := svc.ListPatients(r.Context(), limit, offset)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writePatients(w, patients)
	}
}

func searchPatientsHandler(svc RegistryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patients, err := svc.SearchPatients(r.Context(), r.URL.Query().Get("q"))
		if err != nil {
			handleError(w, r, err, registryErrorCodes...)
			return
		}
		writePatients(w, patients)
	}
}

func writePatients(w http.ResponseWriter, patients []registry.Patient) {
	resp := make([]PatientResponse, 0, len(patients))
	for _, p := range patients {
		resp = append(resp, toPatientResponse(p))
	}
	writeJSON(w, http.StatusOK, resp)
}

func createDoctorHandler(svc RegistryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateDoctorRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		d, err := svc.RegisterDoctor(r.Context(), registry.NewDoctor{
			Name:      req.Name,
			Surname:   req.Surname,
			Specialty: req.Specialty,
		})
		if err != nil {
			handleError(w, r, err, registryErrorCodes...)
			return
		}

		writeJSON(w, http.StatusCreated, CreatedResponse{ID: d.ID, Message: "doctor created"})
	}
}

func getDoctorHandler(svc RegistryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, chi.URLParam(r, "id"), "invalid_doctor_id")
		if !ok {
			return
		}

		d, err := svc.GetDoctor(r.Context(), id)
		if err != nil {
			handleError(w, r, err, registryErrorCodes...)
			return
		}
		writeJSON(w, http.StatusOK, toDoctorResponse(*d))
	}
}

func listDoctorsHandler(svc RegistryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctors, err := svc.ListDoctors(r.Context())
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeDoctors(w, doctors)
	}
}

func searchDoctorsHandler(svc RegistryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctors, err := svc.SearchDoctors(r.Context(), r.URL.Query().Get("q"))
		if err != nil {
			handleError(w, r, err, registryErrorCodes...)
			return
		}
		writeDoctors(w, doctors)
	}
}

func writeDoctors(w http.ResponseWriter, doctors []registry.Doctor) {
	resp := make([]DoctorResponse, 0, len(doctors))
	for _, d := range doctors {
		resp = append(resp, toDoctorResponse(d))
	}
	writeJSON(w, http.StatusOK, resp)
}
