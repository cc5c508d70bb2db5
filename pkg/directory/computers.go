package directory

import (
	"context"

	"github.com/go-ldap/ldap/v3"

	"github.com/bastionsec/sharescan/internal/logger"
	"github.com/bastionsec/sharescan/internal/telemetry"
)

// DefaultMaxComputers caps enumeration so a scan of a huge forest stays
// bounded.
const DefaultMaxComputers = 800000

// Computers enumerates computer accounts below the search root, or below
// ou when non-empty. Each computer contributes its dNSHostName, falling
// back to the name attribute; entries with neither are skipped.
//
// Enumeration stops early when limit is reached, the context expires, or
// a page fails; all three return the hosts collected so far with a nil
// error. A scan against a degraded directory still runs with what it got.
func (s *Source) Computers(ctx context.Context, ou string, limit int) ([]string, error) {
	ctx, span := telemetry.StartEnumerateSpan(ctx, s.config.Domain, ou,
		telemetry.LDAPServer(s.config.Server))
	defer span.End()

	if s.conn == nil {
		err := &BindError{Server: s.config.Server, Attempts: 0, Err: errNotConnected}
		telemetry.RecordError(ctx, err)
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultMaxComputers
	}

	base := s.config.BaseDN
	if ou != "" {
		base = ou
	}

	var (
		hosts   []string
		skipped int
		pages   int
	)
	paging := ldap.NewControlPaging(s.config.PageSize)

	for {
		req := ldap.NewSearchRequest(
			base,
			ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 0, 0, false,
			computerFilter,
			[]string{attrDNSHostName, attrName},
			[]ldap.Control{paging},
		)

		res, err := s.conn.Search(req)
		if err != nil {
			// Server-side limits and mid-flight failures degrade the
			// enumeration, they do not abort the run.
			if ldap.IsErrorWithCode(err, ldap.LDAPResultSizeLimitExceeded) ||
				ldap.IsErrorWithCode(err, ldap.LDAPResultTimeLimitExceeded) {
				logger.DebugCtx(ctx, "Directory search hit server limit", logger.Err(err))
				break
			}
			if len(hosts) == 0 {
				logger.ErrorCtx(ctx, "Directory search failed with no results",
					"base_dn", base, logger.Err(err))
			} else {
				logger.WarnCtx(ctx, "Directory search failed mid-enumeration, keeping partial result",
					logger.Hosts(len(hosts)), logger.Err(err))
			}
			break
		}
		pages++

		capped := false
		for _, entry := range res.Entries {
			host := entry.GetAttributeValue(attrDNSHostName)
			if host == "" {
				host = entry.GetAttributeValue(attrName)
			}
			if host == "" {
				skipped++
				continue
			}
			hosts = append(hosts, host)
			if len(hosts) >= limit {
				capped = true
				break
			}
		}
		if capped {
			logger.WarnCtx(ctx, "Computer enumeration reached cap, result is partial",
				logger.Hosts(len(hosts)))
			break
		}

		ctrl := ldap.FindControl(res.Controls, ldap.ControlTypePaging)
		if ctrl == nil {
			break
		}
		cookie := ctrl.(*ldap.ControlPaging).Cookie
		if len(cookie) == 0 {
			break
		}
		paging.SetCookie(cookie)

		if ctx.Err() != nil {
			logger.WarnCtx(ctx, "Computer enumeration deadline hit, result is partial",
				logger.Hosts(len(hosts)))
			break
		}
	}

	telemetry.SetAttributes(ctx, telemetry.Computers(len(hosts)))
	logger.InfoCtx(ctx, "Computer enumeration complete",
		logger.Hosts(len(hosts)), "skipped", skipped, "pages", pages)
	return hosts, nil
}
