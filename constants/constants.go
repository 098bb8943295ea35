package constants

// ============================================================================
// CONFIGURATION
// ============================================================================

// Configuration Files
const (
	ConfigFileName     = "chatflow.config.json"
	ConfigSchemaFile   = "chatflow.config.schema.json"
	DefaultConfigDir   = ".chatflow"
	DefaultBlobDir     = DefaultConfigDir + "/files"
	DefaultSQLiteDSN   = DefaultConfigDir + "/chatflow.db"
	DefaultWorkspaceID = "1"
)

// Storage Drivers
const (
	StorageDriverMemory   = "memory"
	StorageDriverSQLite   = "sqlite"
	StorageDriverPostgres = "postgres"
)

// Blob Drivers
const (
	BlobDriverFilesystem = "filesystem"
	BlobDriverS3         = "s3"
)

// Event Drivers
const (
	EventDriverMemory = "memory"
	EventDriverNATS   = "nats"
)

// Generation Drivers
const (
	GeneratorEcho   = "echo"
	GeneratorOpenAI = "openai"
)

// Tracing Exporters
const (
	TracingExporterStdout = "stdout"
	TracingExporterOTLP   = "otlp"
)

// Environment Variables
const (
	EnvDebug              = "CHATFLOW_DEBUG"
	EnvStrict             = "CHATFLOW_STRICT"
	EnvWorkspaceID        = "CHATFLOW_WORKSPACE_ID"
	EnvTextGenerationURL  = "CHATFLOW_TEXT_GENERATION_URL"
	EnvLoaderURL          = "CHATFLOW_LOADER_URL"
	EnvSaveWorkspaceURL   = "CHATFLOW_SAVE_WORKSPACE_URL"
	EnvBlockActionURL     = "CHATFLOW_BLOCK_ACTION_URL"
	EnvStorageDSN         = "CHATFLOW_STORAGE_DSN"
	EnvConfigPath         = "CHATFLOW_CONFIG"
	EnvEndpoints          = "CHATFLOW_ENDPOINTS"
	EnvOpenAIKey          = "OPENAI_API_KEY"
	EnvPostgresTestDSN    = "POSTGRES_TEST_DSN"
	EnvNATSTestURL        = "NATS_TEST_URL"
	EnvS3TestBucket       = "S3_TEST_BUCKET"
	EnvS3TestRegion       = "S3_TEST_REGION"
	EnvS3TestEndpoint     = "S3_TEST_ENDPOINT"
	DefaultServiceName    = "chatflow"
	DefaultNATSClusterID  = "chatflow"
	DefaultNATSClientID   = "chatflow-client"
	DefaultOpenAIModel    = "gpt-3.5-turbo"
	DefaultOpenAIEndpoint = "https://api.openai.com/v1/chat/completions"
)

// ============================================================================
// STORE
// ============================================================================

// Container names, also used as event topic suffixes.
const (
	ContainerDocuments      = "documents"
	ContainerFileNames      = "file_names"
	ContainerWorkspaceID    = "workspace_id"
	ContainerCurrentProject = "current_project"
	ContainerProjects       = "projects"
	ContainerBlockChats     = "block_chats"
)

// Event Bus Topics
const (
	EventTopicStorePrefix = "store."
)

// ============================================================================
// BACKEND PROTOCOL
// ============================================================================

// Loader request types
const (
	LoaderTypeChat      = "chat"
	LoaderTypeWorkspace = "workspace"
	LoaderTypeDocuments = "documents"
)

// Block actions
const (
	BlockActionDelete     = "delete"
	BlockTypeConversation = "conversation"
)

// Project identifiers
const (
	ProjectIDPrefix = "project-"
)

// Response messages
const (
	MsgProjectSaved        = "Project data saved successfully"
	MsgConversationDeleted = "Successfully deleted all conversations for block %s"
)
