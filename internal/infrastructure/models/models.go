package models

// All lists every persisted model in foreign-key order for AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Contract{},
		&ContractFile{},
		&Upload{},
		&Payment{},
		&EkycEvent{},
		&OnewonVerify{},
		&RegistryRequest{},
	}
}
