package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ibvrd/cadastro-server/internal/models"
	"github.com/ibvrd/cadastro-server/internal/repository"
	"github.com/ibvrd/cadastro-server/internal/validator"
)

const entityPessoas = "pessoas"

// PessoaService defines the business logic around member records
type PessoaService interface {
	Add(ctx context.Context, input models.PessoaInput) (*models.Pessoa, error)
	Update(ctx context.Context, id int64, input models.PessoaInput) (*models.Pessoa, error)
	Delete(ctx context.Context, id int64, hard bool) (bool, error)
	GetByID(ctx context.Context, id int64) (*models.Pessoa, error)
	Search(ctx context.Context, filter models.PessoaFilter) ([]models.Pessoa, error)
	Aniversariantes(ctx context.Context, month string) ([]models.Pessoa, error)
	Cidades(ctx context.Context) ([]string, error)
	DuplicateCPFs(ctx context.Context) ([]models.DuplicateCPF, error)
}

// DefaultPessoaService implements the PessoaService interface
type DefaultPessoaService struct {
	repo  repository.Repository
	cache *queryCache
}

// NewPessoaService creates a new DefaultPessoaService
func NewPessoaService(repo repository.Repository) PessoaService {
	return &DefaultPessoaService{
		repo:  repo,
		cache: newQueryCache(),
	}
}

// validate normalizes the input in place and rejects anything the
// operator must correct. excludeID ignores the record being updated in
// the CPF ownership check.
func (s *DefaultPessoaService) validate(ctx context.Context, input *models.PessoaInput, excludeID int64) error {
	input.Nome = strings.TrimSpace(input.Nome)
	if input.Nome == "" {
		return &ValidationError{"O nome é obrigatório."}
	}

	input.CPF = validator.NormalizeCPF(input.CPF)
	if input.CPF != "" && !validator.ValidateCPF(input.CPF) {
		return &ValidationError{"CPF inválido."}
	}

	input.Telefone = validator.NormalizePhone(input.Telefone)
	if !validator.ValidatePhone(input.Telefone) {
		return &ValidationError{"Telefone inválido. Informe DDD e número."}
	}

	if !validator.ValidateEmail(strings.TrimSpace(input.Email)) {
		return &ValidationError{"E-mail inválido."}
	}

	if !validator.ValidateDate(input.DataNascimento) {
		return &ValidationError{"Data de nascimento inválida. Use o formato DD/MM/AAAA."}
	}

	if input.CPF != "" {
		exists, err := s.repo.CPFExists(ctx, input.CPF, excludeID)
		if err != nil {
			return fmt.Errorf("error checking cpf: %w", err)
		}
		if exists {
			if excludeID > 0 {
				return &ConflictError{"CPF já cadastrado para outra pessoa!"}
			}
			return &ConflictError{"CPF já cadastrado."}
		}
	}

	return nil
}

func (s *DefaultPessoaService) Add(ctx context.Context, input models.PessoaInput) (*models.Pessoa, error) {
	if err := s.validate(ctx, &input, 0); err != nil {
		return nil, err
	}

	p := &models.Pessoa{
		Nome:           input.Nome,
		CPF:            input.CPF,
		Telefone:       input.Telefone,
		Cidade:         strings.TrimSpace(input.Cidade),
		Bairro:         strings.TrimSpace(input.Bairro),
		DataNascimento: input.DataNascimento,
		Email:          strings.TrimSpace(input.Email),
		RedeSocial:     input.RedeSocial,
		Observacoes:    input.Observacoes,
	}

	if err := s.repo.AddPessoa(ctx, p); err != nil {
		if errors.Is(err, repository.ErrDuplicateCPF) {
			return nil, &ConflictError{"CPF já cadastrado."}
		}
		return nil, fmt.Errorf("error adding pessoa: %w", err)
	}

	s.cache.Invalidate(entityPessoas)
	return p, nil
}

// Update rewrites every editable field of the record. It returns nil
// without error when the id does not exist.
func (s *DefaultPessoaService) Update(ctx context.Context, id int64, input models.PessoaInput) (*models.Pessoa, error) {
	if err := s.validate(ctx, &input, id); err != nil {
		return nil, err
	}

	p := &models.Pessoa{
		ID:             id,
		Nome:           input.Nome,
		CPF:            input.CPF,
		Telefone:       input.Telefone,
		Cidade:         strings.TrimSpace(input.Cidade),
		Bairro:         strings.TrimSpace(input.Bairro),
		DataNascimento: input.DataNascimento,
		Email:          strings.TrimSpace(input.Email),
		RedeSocial:     input.RedeSocial,
		Observacoes:    input.Observacoes,
	}

	found, err := s.repo.UpdatePessoa(ctx, p)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateCPF) {
			return nil, &ConflictError{"CPF já cadastrado para outra pessoa!"}
		}
		return nil, fmt.Errorf("error updating pessoa: %w", err)
	}
	if !found {
		return nil, nil // Pessoa not found
	}

	s.cache.Invalidate(entityPessoas)
	return s.repo.GetPessoaByID(ctx, id)
}

// Delete deactivates the record by default. With hard set the row is
// removed permanently, inactive records included.
func (s *DefaultPessoaService) Delete(ctx context.Context, id int64, hard bool) (bool, error) {
	var (
		found bool
		err   error
	)
	if hard {
		found, err = s.repo.RemovePessoa(ctx, id)
	} else {
		found, err = s.repo.DeletePessoa(ctx, id)
	}
	if err != nil {
		return false, fmt.Errorf("error deleting pessoa: %w", err)
	}

	if found {
		s.cache.Invalidate(entityPessoas)
	}
	return found, nil
}

func (s *DefaultPessoaService) GetByID(ctx context.Context, id int64) (*models.Pessoa, error) {
	p, err := s.repo.GetPessoaByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error getting pessoa: %w", err)
	}
	return p, nil
}

// Search memoizes results per filter signature; any write to the member
// registry drops the whole memo.
func (s *DefaultPessoaService) Search(ctx context.Context, filter models.PessoaFilter) ([]models.Pessoa, error) {
	filter.CPF = validator.NormalizeCPF(filter.CPF)
	sig := fmt.Sprintf("busca|%q|%q|%q|%q|%t",
		filter.Nome, filter.CPF, filter.Cidade, filter.MesAniversario, filter.IncluirInativos)

	if v, ok := s.cache.Get(entityPessoas, sig); ok {
		return v.([]models.Pessoa), nil
	}
	gen := s.cache.Generation(entityPessoas)

	pessoas, err := s.repo.SearchPessoas(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("error searching pessoas: %w", err)
	}

	s.cache.Put(entityPessoas, sig, gen, pessoas)
	return pessoas, nil
}

// Aniversariantes lists the active people born in the given month,
// ordered by day and then name.
func (s *DefaultPessoaService) Aniversariantes(ctx context.Context, month string) ([]models.Pessoa, error) {
	sig := fmt.Sprintf("aniversariantes|%q", month)

	if v, ok := s.cache.Get(entityPessoas, sig); ok {
		return v.([]models.Pessoa), nil
	}
	gen := s.cache.Generation(entityPessoas)

	pessoas, err := s.repo.GetAniversariantes(ctx, month)
	if err != nil {
		return nil, fmt.Errorf("error listing aniversariantes: %w", err)
	}

	s.cache.Put(entityPessoas, sig, gen, pessoas)
	return pessoas, nil
}

func (s *DefaultPessoaService) Cidades(ctx context.Context) ([]string, error) {
	cidades, err := s.repo.GetCidades(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing cidades: %w", err)
	}
	return cidades, nil
}

func (s *DefaultPessoaService) DuplicateCPFs(ctx context.Context) ([]models.DuplicateCPF, error) {
	dups, err := s.repo.GetDuplicateCPFs(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing duplicate cpfs: %w", err)
	}
	return dups, nil
}
