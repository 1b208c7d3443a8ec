package service

import (
	"github.com/straye-as/renovation-api/internal/domain"
	"github.com/straye-as/renovation-api/internal/filter"
)

// CustomerFields are the filterable fields of a customer, keyed by filter id
var CustomerFields = filter.Fields[domain.Customer]{
	"id":           func(c domain.Customer) any { return c.ID },
	"name":         func(c domain.Customer) any { return c.Name },
	"email":        func(c domain.Customer) any { return c.Email },
	"phone":        func(c domain.Customer) any { return c.Phone },
	"address":      func(c domain.Customer) any { return c.Address },
	"city":         func(c domain.Customer) any { return c.City },
	"postalCode":   func(c domain.Customer) any { return c.PostalCode },
	"status":       func(c domain.Customer) any { return c.Status },
	"customerType": func(c domain.Customer) any { return c.CustomerType },
	"createdAt":    func(c domain.Customer) any { return c.CreatedAt },
}

// CustomerSearchFields are matched by free-text search
var CustomerSearchFields = []string{"name", "email", "phone", "city"}

// DealFields are the filterable fields of a deal
var DealFields = filter.Fields[domain.Deal]{
	"id":                func(d domain.Deal) any { return d.ID },
	"title":             func(d domain.Deal) any { return d.Title },
	"customerId":        func(d domain.Deal) any { return d.CustomerID },
	"customerName":      func(d domain.Deal) any { return d.CustomerName },
	"value":             func(d domain.Deal) any { return d.Value },
	"stage":             func(d domain.Deal) any { return d.Stage },
	"probability":       func(d domain.Deal) any { return d.Probability },
	"priority":          func(d domain.Deal) any { return d.Priority },
	"expectedCloseDate": func(d domain.Deal) any { return d.ExpectedCloseDate },
	"source":            func(d domain.Deal) any { return d.Source },
	"converted":         func(d domain.Deal) any { return d.IsConverted() },
	"createdAt":         func(d domain.Deal) any { return d.CreatedAt },
}

// DealSearchFields are matched by free-text search
var DealSearchFields = []string{"title", "customerName", "source"}

// ProjectFields are the filterable fields of a project
var ProjectFields = filter.Fields[domain.Project]{
	"id":                 func(p domain.Project) any { return p.ID },
	"projectNumber":      func(p domain.Project) any { return p.ProjectNumber },
	"title":              func(p domain.Project) any { return p.Title },
	"customerId":         func(p domain.Project) any { return p.CustomerID },
	"customerName":       func(p domain.Project) any { return p.CustomerName },
	"status":             func(p domain.Project) any { return p.Status },
	"percentComplete":    func(p domain.Project) any { return p.PercentComplete },
	"contractAmount":     func(p domain.Project) any { return p.ContractAmount },
	"priority":           func(p domain.Project) any { return p.Priority },
	"manager":            func(p domain.Project) any { return p.Manager },
	"startDate":          func(p domain.Project) any { return p.StartDate },
	"expectedCompletion": func(p domain.Project) any { return p.ExpectedCompletion },
	"fromDeal":           func(p domain.Project) any { return p.OriginatingDealID != nil },
	"createdAt":          func(p domain.Project) any { return p.CreatedAt },
}

// ProjectSearchFields are matched by free-text search
var ProjectSearchFields = []string{"projectNumber", "title", "customerName", "manager"}
