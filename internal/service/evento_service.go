package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ibvrd/cadastro-server/internal/models"
	"github.com/ibvrd/cadastro-server/internal/repository"
	"github.com/ibvrd/cadastro-server/internal/validator"
)

const entityEventos = "eventos"

// TipoEventoPadrao is used when an event arrives without a type.
const TipoEventoPadrao = "geral"

// EventoService defines the business logic around events
type EventoService interface {
	Add(ctx context.Context, input models.EventoInput) (*models.Evento, error)
	Update(ctx context.Context, id int64, input models.EventoInput) (*models.Evento, error)
	Delete(ctx context.Context, id int64) (bool, error)
	GetByID(ctx context.Context, id int64) (*models.Evento, error)
	Search(ctx context.Context, filter models.EventoFilter) ([]models.Evento, error)
	Proximos(ctx context.Context, days int) ([]models.Evento, error)
}

// DefaultEventoService implements the EventoService interface
type DefaultEventoService struct {
	repo  repository.Repository
	cache *queryCache
	now   func() time.Time
}

// NewEventoService creates a new DefaultEventoService
func NewEventoService(repo repository.Repository) EventoService {
	return &DefaultEventoService{
		repo:  repo,
		cache: newQueryCache(),
		now:   time.Now,
	}
}

func validateEvento(input *models.EventoInput) error {
	input.Titulo = strings.TrimSpace(input.Titulo)
	if input.Titulo == "" {
		return &ValidationError{"O título do evento é obrigatório."}
	}

	if input.DataEvento == "" || !validator.ValidateDate(input.DataEvento) {
		return &ValidationError{"Data do evento inválida. Use o formato DD/MM/AAAA."}
	}

	input.Tipo = strings.TrimSpace(input.Tipo)
	if input.Tipo == "" {
		input.Tipo = TipoEventoPadrao
	}

	return nil
}

func (s *DefaultEventoService) Add(ctx context.Context, input models.EventoInput) (*models.Evento, error) {
	if err := validateEvento(&input); err != nil {
		return nil, err
	}

	e := &models.Evento{
		Titulo:      input.Titulo,
		Descricao:   input.Descricao,
		DataEvento:  input.DataEvento,
		Tipo:        input.Tipo,
		Local:       input.Local,
		Responsavel: input.Responsavel,
	}

	if err := s.repo.AddEvento(ctx, e); err != nil {
		return nil, fmt.Errorf("error adding evento: %w", err)
	}

	s.cache.Invalidate(entityEventos)
	return e, nil
}

// Update rewrites every editable field of the event. It returns nil
// without error when the id does not exist.
func (s *DefaultEventoService) Update(ctx context.Context, id int64, input models.EventoInput) (*models.Evento, error) {
	if err := validateEvento(&input); err != nil {
		return nil, err
	}

	e := &models.Evento{
		ID:          id,
		Titulo:      input.Titulo,
		Descricao:   input.Descricao,
		DataEvento:  input.DataEvento,
		Tipo:        input.Tipo,
		Local:       input.Local,
		Responsavel: input.Responsavel,
	}

	found, err := s.repo.UpdateEvento(ctx, e)
	if err != nil {
		return nil, fmt.Errorf("error updating evento: %w", err)
	}
	if !found {
		return nil, nil // Evento not found
	}

	s.cache.Invalidate(entityEventos)
	return s.repo.GetEventoByID(ctx, id)
}

func (s *DefaultEventoService) Delete(ctx context.Context, id int64) (bool, error) {
	found, err := s.repo.DeleteEvento(ctx, id)
	if err != nil {
		return false, fmt.Errorf("error deleting evento: %w", err)
	}

	if found {
		s.cache.Invalidate(entityEventos)
	}
	return found, nil
}

func (s *DefaultEventoService) GetByID(ctx context.Context, id int64) (*models.Evento, error) {
	e, err := s.repo.GetEventoByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error getting evento: %w", err)
	}
	return e, nil
}

func (s *DefaultEventoService) Search(ctx context.Context, filter models.EventoFilter) ([]models.Evento, error) {
	if filter.DataInicio != "" && !validator.ValidateDate(filter.DataInicio) {
		return nil, &ValidationError{"Data inicial inválida. Use o formato DD/MM/AAAA."}
	}
	if filter.DataFim != "" && !validator.ValidateDate(filter.DataFim) {
		return nil, &ValidationError{"Data final inválida. Use o formato DD/MM/AAAA."}
	}

	sig := fmt.Sprintf("busca|%q|%q|%q|%t",
		filter.Tipo, filter.DataInicio, filter.DataFim, filter.IncluirInativos)

	if v, ok := s.cache.Get(entityEventos, sig); ok {
		return v.([]models.Evento), nil
	}
	gen := s.cache.Generation(entityEventos)

	eventos, err := s.repo.SearchEventos(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("error searching eventos: %w", err)
	}

	s.cache.Put(entityEventos, sig, gen, eventos)
	return eventos, nil
}

// Proximos lists active events from today up to the given number of days
// ahead, both ends inclusive. days defaults to 30 when not positive.
func (s *DefaultEventoService) Proximos(ctx context.Context, days int) ([]models.Evento, error) {
	if days <= 0 {
		days = 30
	}

	today := s.now()
	return s.Search(ctx, models.EventoFilter{
		DataInicio: validator.FormatDate(today),
		DataFim:    validator.FormatDate(today.AddDate(0, 0, days)),
	})
}
