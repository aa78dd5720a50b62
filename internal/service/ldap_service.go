package service

import (
	"fmt"

	"github.com/go-ldap/ldap/v3"

	"buildstate/internal/pkg/config"
	pkgErrors "buildstate/pkg/errors"
)

// IdentityInfo 外部身份源返回的用户信息
type IdentityInfo struct {
	Username string
	Email    string
	FullName string
}

// LDAPService IDM(LDAP)认证
type LDAPService interface {
	Authenticate(username, password string) (*IdentityInfo, error)
}

type ldapService struct {
	cfg *config.LDAPConfig
}

func NewLDAPService(cfg *config.LDAPConfig) LDAPService {
	return &ldapService{
		cfg: cfg,
	}
}

func (s *ldapService) Authenticate(username, password string) (*IdentityInfo, error) {
	if !s.cfg.Enabled {
		return nil, pkgErrors.New(pkgErrors.KindUnauthorized, "IDM认证未启用")
	}

	conn, err := s.connect()
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	userDN, attributes, err := s.searchUser(conn, username)
	if err != nil {
		return nil, err
	}

	// 以用户身份绑定校验密码
	if err := conn.Bind(userDN, password); err != nil {
		return nil, pkgErrors.ErrInvalidCredentials
	}

	return &IdentityInfo{
		Username: username,
		Email:    attributes[s.cfg.Attributes.Email],
		FullName: attributes[s.cfg.Attributes.DisplayName],
	}, nil
}

func (s *ldapService) connect() (*ldap.Conn, error) {
	address := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	scheme := "ldap"
	if s.cfg.UseSSL {
		scheme = "ldaps"
	}

	conn, err := ldap.DialURL(scheme + "://" + address)
	if err != nil {
		return nil, pkgErrors.Wrap(pkgErrors.KindInternal, "LDAP连接失败", err)
	}

	if s.cfg.BindDN != "" {
		if err := conn.Bind(s.cfg.BindDN, s.cfg.BindPassword); err != nil {
			conn.Close()
			return nil, pkgErrors.Wrap(pkgErrors.KindInternal, "LDAP绑定失败", err)
		}
	}

	return conn, nil
}

func (s *ldapService) searchUser(conn *ldap.Conn, username string) (string, map[string]string, error) {
	filter := fmt.Sprintf(s.cfg.UserFilter, ldap.EscapeFilter(username))
	attrs := []string{s.cfg.Attributes.Username, s.cfg.Attributes.Email, s.cfg.Attributes.DisplayName}

	searchRequest := ldap.NewSearchRequest(
		s.cfg.BaseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		0,
		0,
		false,
		filter,
		attrs,
		nil,
	)

	result, err := conn.Search(searchRequest)
	if err != nil {
		return "", nil, pkgErrors.Wrap(pkgErrors.KindInternal, "LDAP搜索失败", err)
	}

	switch len(result.Entries) {
	case 0:
		return "", nil, pkgErrors.ErrInvalidCredentials
	case 1:
	default:
		return "", nil, pkgErrors.New(pkgErrors.KindUnauthorized, "找到多个匹配的用户")
	}

	entry := result.Entries[0]
	attributes := make(map[string]string, len(attrs))
	for _, attr := range attrs {
		attributes[attr] = entry.GetAttributeValue(attr)
	}

	return entry.DN, attributes, nil
}
