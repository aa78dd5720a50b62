package service

import (
	"context"

	"go.uber.org/zap"

	"buildstate/internal/dto"
	"buildstate/internal/model"
	"buildstate/internal/repository"
)

// CatalogService 目录类数据(项目/平台/系统版本/镜像类型)通用服务
//
// R 为创建/更新请求, apply 负责把请求写到实体上。
type CatalogService[T any, R any] struct {
	repo   repository.CatalogRepository[T]
	apply  func(item *T, req *R)
	label  string
	logger *zap.Logger
}

func NewCatalogService[T any, R any](repo repository.CatalogRepository[T], apply func(item *T, req *R), label string, logger *zap.Logger) *CatalogService[T, R] {
	return &CatalogService[T, R]{
		repo:   repo,
		apply:  apply,
		label:  label,
		logger: logger,
	}
}

func (s *CatalogService[T, R]) Create(ctx context.Context, req *R) (*T, error) {
	item := new(T)
	s.apply(item, req)
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, err
	}
	s.logger.Info("已创建"+s.label, zap.Any("item", item))
	return item, nil
}

func (s *CatalogService[T, R]) Get(ctx context.Context, id int64) (*T, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *CatalogService[T, R]) List(ctx context.Context, query *dto.PageQuery) (*dto.PageResponse, error) {
	items, total, err := s.repo.List(ctx, query.Keyword, repository.Page{
		Offset: query.GetOffset(),
		Limit:  query.GetPageSize(),
	})
	if err != nil {
		return nil, err
	}
	return dto.NewPageResponse(items, total, query.GetPage(), query.GetPageSize()), nil
}

func (s *CatalogService[T, R]) Update(ctx context.Context, id int64, req *R) (*T, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.apply(item, req)
	if err := s.repo.Update(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// Delete 软删除
func (s *CatalogService[T, R]) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("已删除"+s.label, zap.Int64("id", id))
	return nil
}

// 目录服务别名
type (
	ProjectService   = CatalogService[model.Project, dto.ProjectRequest]
	PlatformService  = CatalogService[model.Platform, dto.PlatformRequest]
	OSVersionService = CatalogService[model.OSVersion, dto.OSVersionRequest]
	ImageTypeService = CatalogService[model.ImageType, dto.ImageTypeRequest]
)

func NewProjectService(repos *repository.Repositories, logger *zap.Logger) *ProjectService {
	return NewCatalogService(repos.Projects, func(p *model.Project, req *dto.ProjectRequest) {
		p.Name = req.Name
		p.Description = req.Description
		p.OwnerName = req.OwnerName
	}, "项目", logger)
}

func NewPlatformService(repos *repository.Repositories, logger *zap.Logger) *PlatformService {
	return NewCatalogService(repos.Platforms, func(p *model.Platform, req *dto.PlatformRequest) {
		p.Name = req.Name
		p.CloudProvider = req.CloudProvider
		p.Region = req.Region
		p.Description = req.Description
	}, "平台", logger)
}

func NewOSVersionService(repos *repository.Repositories, logger *zap.Logger) *OSVersionService {
	return NewCatalogService(repos.OSVersions, func(o *model.OSVersion, req *dto.OSVersionRequest) {
		o.Name = req.Name
		o.Version = req.Version
		o.Description = req.Description
	}, "系统版本", logger)
}

func NewImageTypeService(repos *repository.Repositories, logger *zap.Logger) *ImageTypeService {
	return NewCatalogService(repos.ImageTypes, func(i *model.ImageType, req *dto.ImageTypeRequest) {
		i.Name = req.Name
		i.Description = req.Description
	}, "镜像类型", logger)
}
