package application

import "github.com/wms-platform/transfer-service/internal/domain"

// ToPickingDTO converts a domain Picking to PickingDTO
func ToPickingDTO(p *domain.Picking) *PickingDTO {
	if p == nil {
		return nil
	}

	moves := make([]MoveDTO, 0, len(p.Moves))
	for _, move := range p.Moves {
		moves = append(moves, ToMoveDTO(move))
	}

	return &PickingDTO{
		PickingID:       p.PickingID,
		Name:            p.Name,
		TenantID:        p.TenantID,
		WarehouseID:     p.WarehouseID,
		OperationTypeID: p.OperationTypeID,
		OperationKind:   string(p.OperationKind),
		PartnerID:       p.PartnerID,
		SourceLocation:  ToLocationDTO(p.SourceLocation),
		DestLocation:    ToLocationDTO(p.DestLocation),
		State:           p.State.String(),
		Moves:           moves,
		PrevPickingIDs:  p.PrevPickingIDs,
		NextPickingIDs:  p.NextPickingIDs,
		ScheduledAt:     p.ScheduledAt,
		DoneAt:          p.DoneAt,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

// ToMoveDTO converts a domain Move to MoveDTO
func ToMoveDTO(m domain.Move) MoveDTO {
	return MoveDTO{
		MoveID:          m.MoveID,
		SKU:             m.SKU,
		ProductName:     m.ProductName,
		Quantity:        m.Quantity,
		ReservedQty:     m.ReservedQty,
		Tracking:        string(m.Tracking),
		LotSerial:       m.LotSerial,
		State:           m.State.String(),
		ProcureMethod:   string(m.ProcureMethod),
		PropagateCancel: m.PropagateCancel,
		Scrapped:        m.Scrapped,
		SourceLocation:  ToLocationDTO(m.SourceLocation),
		DestLocation:    ToLocationDTO(m.DestLocation),
		OrigMoveIDs:     m.OrigMoveIDs,
		DestMoveIDs:     m.DestMoveIDs,
	}
}

// ToLocationDTO converts a domain Location to LocationDTO
func ToLocationDTO(l domain.Location) LocationDTO {
	return LocationDTO{
		LocationID:  l.LocationID,
		Name:        l.Name,
		Usage:       string(l.Usage),
		WarehouseID: l.WarehouseID,
	}
}

// ToWarehouseDTO converts a domain Warehouse to WarehouseDTO
func ToWarehouseDTO(w *domain.Warehouse) *WarehouseDTO {
	if w == nil {
		return nil
	}

	opTypes := make([]OperationTypeDTO, 0, len(w.OperationTypes))
	for _, opType := range w.OperationTypes {
		opTypes = append(opTypes, ToOperationTypeDTO(opType))
	}

	return &WarehouseDTO{
		WarehouseID:      w.WarehouseID,
		TenantID:         w.TenantID,
		Code:             w.Code,
		Name:             w.Name,
		Active:           w.Active,
		LotStockLocation: ToLocationDTO(w.LotStockLocation),
		InputLocation:    ToLocationDTO(w.InputLocation),
		OutputLocation:   ToLocationDTO(w.OutputLocation),
		PackLocation:     ToLocationDTO(w.PackLocation),
		DeliverySteps:    string(w.DeliverySteps),
		ReceptionSteps:   string(w.ReceptionSteps),
		OperationTypes:   opTypes,
		CreatedAt:        w.CreatedAt,
		UpdatedAt:        w.UpdatedAt,
	}
}

// ToOperationTypeDTO converts a domain OperationType to OperationTypeDTO
func ToOperationTypeDTO(opType domain.OperationType) OperationTypeDTO {
	dto := OperationTypeDTO{
		OperationTypeID: opType.OperationTypeID,
		Name:            opType.Name,
		Code:            string(opType.Code),
		SequenceCode:    opType.SequenceCode,
	}
	if opType.DefaultSourceLocation != nil {
		loc := ToLocationDTO(*opType.DefaultSourceLocation)
		dto.DefaultSourceLocation = &loc
	}
	if opType.DefaultDestLocation != nil {
		loc := ToLocationDTO(*opType.DefaultDestLocation)
		dto.DefaultDestLocation = &loc
	}
	return dto
}

// ToPickingDTOs converts a slice of domain Pickings to PickingDTOs
func ToPickingDTOs(pickings []*domain.Picking) []PickingDTO {
	dtos := make([]PickingDTO, 0, len(pickings))
	for _, p := range pickings {
		if dto := ToPickingDTO(p); dto != nil {
			dtos = append(dtos, *dto)
		}
	}
	return dtos
}

// ToWarehouseDTOs converts a slice of domain Warehouses to WarehouseDTOs
func ToWarehouseDTOs(warehouses []*domain.Warehouse) []WarehouseDTO {
	dtos := make([]WarehouseDTO, 0, len(warehouses))
	for _, w := range warehouses {
		if dto := ToWarehouseDTO(w); dto != nil {
			dtos = append(dtos, *dto)
		}
	}
	return dtos
}
