// internal/domain/catalog/partners.go
package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/your-org/stationery-backend/internal/pkg/apperror"
	"github.com/your-org/stationery-backend/internal/pkg/validation"
)

// BrandRequest represents brand creation data
type BrandRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description"`
}

// CompanyRequest represents company creation data
type CompanyRequest struct {
	Name    string `json:"name" binding:"required,max=200"`
	TaxID   string `json:"tax_id" binding:"omitempty,max=20"`
	Address string `json:"address"`
	Phone   string `json:"phone" binding:"omitempty,max=20"`
	Email   string `json:"email" binding:"omitempty,email"`
}

// SupplierRequest represents supplier creation data
type SupplierRequest struct {
	CompanyID *uint  `json:"company_id"`
	Name      string `json:"name" binding:"required,max=200"`
	Phone     string `json:"phone" binding:"omitempty,max=20"`
	Email     string `json:"email" binding:"omitempty,email"`
	BrandIDs  []uint `json:"brand_ids"`
}

// CustomerRequest represents customer creation data
type CustomerRequest struct {
	Name           string `json:"name" binding:"required,max=200"`
	DocumentNumber string `json:"document_number" binding:"omitempty,max=20"`
	Email          string `json:"email" binding:"omitempty,email"`
	Phone          string `json:"phone" binding:"omitempty,max=20"`
	Address        string `json:"address"`
}

// PaymentMethodRequest represents payment method creation data
type PaymentMethodRequest struct {
	Code string `json:"code" binding:"required,len=2"`
	Name string `json:"name" binding:"required,max=50"`
}

// SupplierSummary is a supplier with the number of products it provides
type SupplierSummary struct {
	Supplier
	ProductCount int64 `json:"product_count"`
}

// BRANDS AND COMPANIES

// CreateBrand creates a new brand
func (s *Service) CreateBrand(ctx context.Context, req *BrandRequest) (*Brand, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	brand := &Brand{Name: req.Name, Description: req.Description}
	if err := s.db.WithContext(ctx).Create(brand).Error; err != nil {
		return nil, fmt.Errorf("failed to create brand: %w", err)
	}
	return brand, nil
}

// ListBrands retrieves all brands
func (s *Service) ListBrands(ctx context.Context) ([]Brand, error) {
	var brands []Brand
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&brands).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve brands: %w", err)
	}
	return brands, nil
}

// CreateCompany creates a new company
func (s *Service) CreateCompany(ctx context.Context, req *CompanyRequest) (*Company, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	company := &Company{
		Name:    req.Name,
		TaxID:   req.TaxID,
		Address: req.Address,
		Phone:   req.Phone,
		Email:   req.Email,
	}
	if err := s.db.WithContext(ctx).Create(company).Error; err != nil {
		return nil, fmt.Errorf("failed to create company: %w", err)
	}
	return company, nil
}

// ListCompanies retrieves all companies with their suppliers
func (s *Service) ListCompanies(ctx context.Context) ([]Company, error) {
	var companies []Company
	if err := s.db.WithContext(ctx).Preload("Suppliers").Order("name ASC").Find(&companies).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve companies: %w", err)
	}
	return companies, nil
}

// SUPPLIERS

// CreateSupplier creates a supplier linked to a company and brands
func (s *Service) CreateSupplier(ctx context.Context, req *SupplierRequest) (*Supplier, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)

	if req.CompanyID != nil {
		if err := exists(db, &Company{}, *req.CompanyID, "company"); err != nil {
			return nil, err
		}
	}

	var email *string
	if req.Email != "" {
		normalized := strings.ToLower(req.Email)
		var count int64
		if err := db.Model(&Supplier{}).Where("email = ?", normalized).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("failed to check supplier email: %w", err)
		}
		if count > 0 {
			return nil, apperror.Validation("email", "a supplier with email '%s' already exists", normalized)
		}
		email = &normalized
	}

	var brands []Brand
	if len(req.BrandIDs) > 0 {
		if err := db.Where("id IN ?", req.BrandIDs).Find(&brands).Error; err != nil {
			return nil, fmt.Errorf("failed to load brands: %w", err)
		}
		if len(brands) != len(uniqueIDs(req.BrandIDs)) {
			return nil, apperror.Validation("brand_ids", "one or more brands do not exist")
		}
	}

	supplier := &Supplier{
		CompanyID: req.CompanyID,
		Name:      req.Name,
		Phone:     req.Phone,
		Email:     email,
		Active:    true,
		Brands:    brands,
	}

	if err := db.Create(supplier).Error; err != nil {
		return nil, fmt.Errorf("failed to create supplier: %w", err)
	}

	return supplier, nil
}

// GetSupplier retrieves a supplier with company and brands
func (s *Service) GetSupplier(ctx context.Context, id uint) (*Supplier, error) {
	var supplier Supplier
	if err := s.db.WithContext(ctx).Preload("Company").Preload("Brands").First(&supplier, id).Error; err != nil {
		return nil, apperror.FromDB(err, "supplier", id)
	}
	return &supplier, nil
}

// ListSuppliers retrieves suppliers with their product counts
func (s *Service) ListSuppliers(ctx context.Context) ([]SupplierSummary, error) {
	var suppliers []Supplier
	if err := s.db.WithContext(ctx).Preload("Company").Preload("Brands").Order("name ASC").Find(&suppliers).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve suppliers: %w", err)
	}

	type row struct {
		SupplierID uint
		Count      int64
	}
	var rows []row
	if err := s.db.WithContext(ctx).Table("product_suppliers").
		Select("supplier_id, COUNT(*) AS count").
		Group("supplier_id").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count supplier products: %w", err)
	}
	counts := make(map[uint]int64, len(rows))
	for _, r := range rows {
		counts[r.SupplierID] = r.Count
	}

	summaries := make([]SupplierSummary, 0, len(suppliers))
	for _, supplier := range suppliers {
		summaries = append(summaries, SupplierSummary{Supplier: supplier, ProductCount: counts[supplier.ID]})
	}
	return summaries, nil
}

// SupplierProductCount counts the products a supplier provides
func (s *Service) SupplierProductCount(ctx context.Context, supplierID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Table("product_suppliers").Where("supplier_id = ?", supplierID).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count supplier products: %w", err)
	}
	return count, nil
}

// CUSTOMERS

// CreateCustomer creates a new customer
func (s *Service) CreateCustomer(ctx context.Context, req *CustomerRequest) (*Customer, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	customer := &Customer{
		Name:           req.Name,
		DocumentNumber: req.DocumentNumber,
		Email:          strings.ToLower(req.Email),
		Phone:          req.Phone,
		Address:        req.Address,
	}
	if err := s.db.WithContext(ctx).Create(customer).Error; err != nil {
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}
	return customer, nil
}

// GetCustomer retrieves a customer by ID
func (s *Service) GetCustomer(ctx context.Context, id uint) (*Customer, error) {
	var customer Customer
	if err := s.db.WithContext(ctx).First(&customer, id).Error; err != nil {
		return nil, apperror.FromDB(err, "customer", id)
	}
	return &customer, nil
}

// ListCustomers retrieves customers matching an optional search term
func (s *Service) ListCustomers(ctx context.Context, search string) ([]Customer, error) {
	query := s.db.WithContext(ctx).Model(&Customer{})
	if search != "" {
		term := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR document_number LIKE ? OR LOWER(email) LIKE ?", term, term, term)
	}

	var customers []Customer
	if err := query.Order("name ASC").Find(&customers).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve customers: %w", err)
	}
	return customers, nil
}

// PAYMENT METHODS

// CreatePaymentMethod creates a payment method with a unique two letter code
func (s *Service) CreatePaymentMethod(ctx context.Context, req *PaymentMethodRequest) (*PaymentMethod, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	code := strings.ToUpper(req.Code)
	var count int64
	if err := s.db.WithContext(ctx).Model(&PaymentMethod{}).Where("code = ?", code).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check payment method: %w", err)
	}
	if count > 0 {
		return nil, apperror.Validation("code", "payment method '%s' already exists", code)
	}

	method := &PaymentMethod{Code: code, Name: req.Name, Active: true}
	if err := s.db.WithContext(ctx).Create(method).Error; err != nil {
		return nil, fmt.Errorf("failed to create payment method: %w", err)
	}
	return method, nil
}

// ListPaymentMethods retrieves active payment methods
func (s *Service) ListPaymentMethods(ctx context.Context) ([]PaymentMethod, error) {
	var methods []PaymentMethod
	if err := s.db.WithContext(ctx).Where("active = ?", true).Order("code ASC").Find(&methods).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve payment methods: %w", err)
	}
	return methods, nil
}
