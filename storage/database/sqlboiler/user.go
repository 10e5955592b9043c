package boiledrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/queries"
	"github.com/volatiletech/sqlboiler/v4/queries/qm"

	"github.com/appdotbuilder/junior-science-lms/core"
	"github.com/appdotbuilder/junior-science-lms/core/user"
)

const userTable = `"user"`

const userColumns = "id, name, email, role, student_number, employee_number, bio, is_active, password_hash, created_at, updated_at, last_login"

type userRow struct {
	ID             string      `boil:"id"`
	Name           string      `boil:"name"`
	Email          string      `boil:"email"`
	Role           string      `boil:"role"`
	StudentNumber  null.String `boil:"student_number"`
	EmployeeNumber null.String `boil:"employee_number"`
	Bio            null.String `boil:"bio"`
	IsActive       bool        `boil:"is_active"`
	PasswordHash   []byte      `boil:"password_hash"`
	CreatedAt      time.Time   `boil:"created_at"`
	UpdatedAt      time.Time   `boil:"updated_at"`
	LastLogin      null.Time   `boil:"last_login"`
}

type userRepository struct {
	executor
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) *userRepository {
	return &userRepository{executor{db: exec}}
}

func (repo userRepository) boil(usr user.User) userRow {
	return userRow{
		ID:             usr.ID,
		Name:           usr.Name,
		Email:          usr.Email,
		Role:           string(usr.Role),
		StudentNumber:  null.NewString(usr.StudentNumber, usr.StudentNumber != ""),
		EmployeeNumber: null.NewString(usr.EmployeeNumber, usr.EmployeeNumber != ""),
		Bio:            null.NewString(usr.Bio, usr.Bio != ""),
		IsActive:       usr.IsActive,
		PasswordHash:   usr.PasswordHash,
		CreatedAt:      usr.CreatedAt.UTC(),
		UpdatedAt:      usr.UpdatedAt.UTC(),
		LastLogin:      null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func (repo userRepository) unboil(row userRow) user.User {
	return user.User{
		ID:             row.ID,
		Name:           row.Name,
		Email:          row.Email,
		Role:           user.Role(row.Role),
		StudentNumber:  row.StudentNumber.String,
		EmployeeNumber: row.EmployeeNumber.String,
		Bio:            row.Bio.String,
		IsActive:       row.IsActive,
		PasswordHash:   row.PasswordHash,
		CreatedAt:      row.CreatedAt.UTC(),
		UpdatedAt:      row.UpdatedAt.UTC(),
		LastLogin:      row.LastLogin.Time.UTC(),
	}
}

func (repo userRepository) unboilSlice(rows []userRow) []user.User {
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, repo.unboil(row))
	}
	return users
}

func (repo userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers []user.User, exec ...core.DBExecutor) error {
	var rows []struct {
		ID string `boil:"id"`
	}
	err := newQuery(
		qm.Select("id"),
		qm.From(userTable),
		qm.Where("lower(email) = lower(?)", email),
	).Bind(ctx, repo.getExec(exec), &rows)
	if err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}

	excluded := make(map[string]bool, len(excludedUsers))
	for _, u := range excludedUsers {
		excluded[u.ID] = true
	}
	for _, row := range rows {
		if !excluded[row.ID] {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	usr.ID = uuid.New().String()
	row := repo.boil(usr)

	_, err := queries.Raw(
		`INSERT INTO "user" (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		row.ID, row.Name, row.Email, row.Role, row.StudentNumber, row.EmployeeNumber, row.Bio,
		row.IsActive, row.PasswordHash, row.CreatedAt, row.UpdatedAt, row.LastLogin,
	).ExecContext(ctx, repo.getExec(exec))
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return repo.unboil(row), nil
}

func (repo userRepository) filterMods(filter *user.QueryFilter) []qm.QueryMod {
	if filter == nil {
		return nil
	}

	var mods []qm.QueryMod
	// users with Name or Email matching the search keyword
	if filter.Search != "" {
		val := "%" + filter.Search + "%"
		mods = append(mods, qm.Expr(qm.Where("name ILIKE ? OR email ILIKE ?", val, val)))
	}
	if len(filter.Roles) > 0 {
		roles := make([]interface{}, 0, len(filter.Roles))
		for _, r := range filter.Roles {
			roles = append(roles, string(r))
		}
		mods = append(mods, qm.WhereIn("role IN ?", roles...))
	}
	if filter.IsActive != nil {
		mods = append(mods, qm.Where("is_active = ?", *filter.IsActive))
	}
	if !filter.CreatedFrom.IsZero() {
		mods = append(mods, qm.Where("created_at >= ?", filter.CreatedFrom.UTC()))
	}
	if !filter.CreatedTo.IsZero() {
		mods = append(mods, qm.Where("created_at <= ?", filter.CreatedTo.UTC()))
	}
	return mods
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]user.User, error) {
	mods := append([]qm.QueryMod{qm.Select(userColumns), qm.From(userTable)}, repo.filterMods(filter)...)

	ordering = append(ordering, core.DBOrdering{Field: "id", Ascending: true})
	mods = append(mods, qm.OrderBy(orderBy(ordering)))
	if filter != nil && filter.Limit > 0 {
		mods = append(mods, qm.Limit(filter.Limit))
	}

	var rows []userRow
	if err := newQuery(mods...).Bind(ctx, repo.getExec(exec), &rows); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return repo.unboilSlice(rows), nil
}

func (repo userRepository) CountUsers(ctx context.Context, filter *user.QueryFilter, exec ...core.DBExecutor) (int, error) {
	q := newQuery(append([]qm.QueryMod{qm.From(userTable)}, repo.filterMods(filter)...)...)
	queries.SetCount(q)

	var count int64
	if err := q.QueryRowContext(ctx, repo.getExec(exec)).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "counting users")
	}
	return int(count), nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	mods := []qm.QueryMod{qm.Select(userColumns), qm.From(userTable)}
	switch {
	case filter.ID != "":
		if _, err := uuid.Parse(filter.ID); err != nil {
			return user.User{}, user.ErrNotFound
		}
		mods = append(mods, qm.Where("id = ?", filter.ID))
	case filter.Email != "":
		mods = append(mods, qm.Where("lower(email) = lower(?)", filter.Email))
	default:
		return user.User{}, user.ErrNotFound
	}

	var row userRow
	if err := newQuery(mods...).Bind(ctx, repo.getExec(exec), &row); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user")
	}
	return repo.unboil(row), nil
}

func (repo userRepository) GetUsersByID(ctx context.Context, ids []string, exec ...core.DBExecutor) ([]user.User, error) {
	args := validUUIDs(ids)
	if len(args) == 0 {
		return nil, nil
	}

	var rows []userRow
	err := newQuery(
		qm.Select(userColumns),
		qm.From(userTable),
		qm.WhereIn("id IN ?", args...),
		qm.OrderBy("id"),
	).Bind(ctx, repo.getExec(exec), &rows)
	if err != nil {
		return nil, errors.Wrap(err, "querying users by ID")
	}
	return repo.unboilSlice(rows), nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	row := repo.boil(usr)
	res, err := queries.Raw(
		`UPDATE "user" SET name = $2, email = $3, role = $4, student_number = $5, employee_number = $6, bio = $7,
			is_active = $8, password_hash = $9, updated_at = $10, last_login = $11
		WHERE id = $1`,
		row.ID, row.Name, row.Email, row.Role, row.StudentNumber, row.EmployeeNumber, row.Bio,
		row.IsActive, row.PasswordHash, row.UpdatedAt, row.LastLogin,
	).ExecContext(ctx, repo.getExec(exec))
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return repo.unboil(row), nil
}

// validUUIDs drops the IDs postgres would refuse to cast to uuid.
func validUUIDs(ids []string) []interface{} {
	args := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			args = append(args, id)
		}
	}
	return args
}
