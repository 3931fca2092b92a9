//go:build integration

package registry

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/medical-appointment-scheduling/internal/db"
	"github.com/hackgods/medical-appointment-scheduling/internal/testutil/containers"
)

func TestPgRegistry(t *testing.T) {
	pool := containers.NewPostgres(t, db.SchemaRegistry)
	repo := NewPgRepository(pool)
	logger, _ := test.NewNullLogger()
	svc := NewService(repo, repo, logger)
	ctx := context.Background()

	ana, err := svc.RegisterPatient(ctx, NewPatient{Name: "Ana Torres", Email: "ana@example.com", Phone: "0991234567"})
	require.NoError(t, err)
	_, err = svc.RegisterPatient(ctx, NewPatient{Name: "Pedro Mora", Phone: "0987654321"})
	require.NoError(t, err)
	// patients without email do not collide with each other
	_, err = svc.RegisterPatient(ctx, NewPatient{Name: "Rosa Mora"})
	require.NoError(t, err)

	_, err = svc.RegisterPatient(ctx, NewPatient{Name: "Ana T.", Email: "ANA@example.com"})
	assert.ErrorIs(t, err, ErrDuplicatePatient)

	got, err := svc.GetPatient(ctx, ana.ID)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", got.Email)
	assert.Equal(t, "0991234567", got.Phone)

	_, err = svc.GetPatient(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrPatientNotFound)

	found, err := svc.SearchPatients(ctx, "mora")
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "Pedro Mora", found[0].Name)

	page, err := svc.ListPatients(ctx, 2, 0)
	require.NoError(t, err)
	assert.Len(t, page, 2)
	page, err = svc.ListPatients(ctx, 2, 2)
	require.NoError(t, err)
	assert.Len(t, page, 1)

	luis, err := svc.RegisterDoctor(ctx, NewDoctor{Name: "Luis Vega", Specialty: "Cardiology"})
	require.NoError(t, err)
	_, err = svc.RegisterDoctor(ctx, NewDoctor{Name: "Sara Ponce", Specialty: "Dermatology"})
	require.NoError(t, err)

	exists, err := svc.DoctorExists(ctx, luis.ID)
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = svc.DoctorExists(ctx, uuid.New())
	require.NoError(t, err)
	assert.False(t, exists)

	doctors, err := svc.SearchDoctors(ctx, "CARDIO")
	require.NoError(t, err)
	require.Len(t, doctors, 1)
	assert.Equal(t, luis.ID, doctors[0].ID)

	all, err := svc.ListDoctors(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestPgPatientUpdateAndIdentification(t *testing.T) {
	pool := containers.NewPostgres(t, db.SchemaRegistry)
	repo := NewPgRepository(pool)
	logger, _ := test.NewNullLogger()
	svc := NewService(repo, repo, logger)
	ctx := context.Background()

	birth := time.Date(1985, 3, 14, 0, 0, 0, 0, time.UTC)
	p, err := svc.RegisterPatient(ctx, NewPatient{
		Identification:     "1712345678",
		IdentificationType: IdentificationCedula,
		Name:               "Pedro Mena",
		Gender:             GenderMale,
		BirthDate:          birth,
		Email:              "pedro@example.com",
		Address:            Address{Street: "Calle Larga", Number: "7-21", City: "Cuenca"},
	})
	require.NoError(t, err)

	got, err := svc.FindPatientByIdentification(ctx, "1712345678")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, IdentificationCedula, got.IdentificationType)
	assert.Equal(t, GenderMale, got.Gender)
	assert.True(t, birth.Equal(got.BirthDate))
	assert.Equal(t, "Cuenca", got.Address.City)
	assert.Equal(t, PatientActive, got.Status)

	_, err = svc.RegisterPatient(ctx, NewPatient{Identification: "1712345678", IdentificationType: IdentificationCedula, Name: "Otro"})
	assert.ErrorIs(t, err, ErrDuplicatePatient)

	addr := Address{Street: "Av. Solano", Number: "3-45", City: "Cuenca"}
	phone := "0988887777"
	_, err = svc.UpdatePatient(ctx, p.ID, PatientUpdate{Phone: &phone, Address: &addr})
	require.NoError(t, err)

	got, err = svc.GetPatient(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, addr, got.Address)
	assert.Equal(t, phone, got.Phone)
	assert.Equal(t, "1712345678", got.Identification)

	_, err = svc.RegisterPatient(ctx, NewPatient{Name: "Lucia Paz", Email: "lucia@example.com"})
	require.NoError(t, err)
	taken := "LUCIA@example.com"
	_, err = svc.UpdatePatient(ctx, p.ID, PatientUpdate{Email: &taken})
	assert.ErrorIs(t, err, ErrDuplicatePatient)

	_, err = svc.UpdatePatient(ctx, uuid.New(), PatientUpdate{Phone: &phone})
	assert.ErrorIs(t, err, ErrPatientNotFound)
}

func TestPgSearchMatchesLiterally(t *testing.T) {
	pool := containers.NewPostgres(t, db.SchemaRegistry)
	repo := NewPgRepository(pool)
	logger, _ := test.NewNullLogger()
	svc := NewService(repo, repo, logger)
	ctx := context.Background()

	_, err := svc.RegisterPatient(ctx, NewPatient{Name: "Ana Torres", Email: "ana@example.com"})
	require.NoError(t, err)
	_, err = svc.RegisterPatient(ctx, NewPatient{Name: "Rosa_Mora", Email: "rosa@example.com"})
	require.NoError(t, err)
	_, err = svc.RegisterDoctor(ctx, NewDoctor{Name: "Luis", Surname: "Vega", Specialty: "Cardiology"})
	require.NoError(t, err)

	for _, q := range []string{"_", "%"} {
		mem := NewService(NewMemoryRepository(), NewMemoryRepository(), logger)
		_, err := mem.RegisterPatient(ctx, NewPatient{Name: "Ana Torres"})
		require.NoError(t, err)
		_, err = mem.RegisterPatient(ctx, NewPatient{Name: "Rosa_Mora"})
		require.NoError(t, err)
		memFound, err := mem.SearchPatients(ctx, q)
		require.NoError(t, err)

		found, err := svc.SearchPatients(ctx, q)
		require.NoError(t, err)
		assert.Len(t, found, len(memFound), "query %q", q)
	}

	found, err := svc.SearchPatients(ctx, "_")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Rosa_Mora", found[0].Name)

	doctors, err := svc.SearchDoctors(ctx, "%")
	require.NoError(t, err)
	assert.Empty(t, doctors)
	doctors, err = svc.SearchDoctors(ctx, "VEGA")
	require.NoError(t, err)
	assert.Len(t, doctors, 1)
}
